// Package uniuri generates random strings from crypto/rand, used for the
// placeholder credentials assigned to directory-managed accounts. The
// generated value is never kept; only its hash is stored, so the local
// credential can never match anything a person might type.
package uniuri
