package config

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string `validate:"omitempty,oneof=sqlite mysql postgres"`
	// PasswordHash selects the credential encoder used for bootstrapped
	// placeholder credentials: argon2id (default) or bcrypt (matching
	// Contao's native hashes).
	PasswordHash string `validate:"omitempty,oneof=argon2id bcrypt"`
}
