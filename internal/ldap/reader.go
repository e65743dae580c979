package ldap

import (
	"slices"
	"strconv"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
)

// Reader executes attribute-mapped searches for persons and groups and
// returns normalized entries. An unreachable directory yields empty results
// rather than an error: a transient outage degrades to "nothing to sync".
type Reader struct {
	cfg      *config.Config
	registry *Registry
}

// NewReader creates a directory reader on top of the connection registry.
func NewReader(cfg *config.Config, registry *Registry) *Reader {
	return &Reader{cfg: cfg, registry: registry}
}

// Persons returns all persons of the mode's subtree keyed by the resolved
// local username. Entries without uid or uidNumber and entries on the
// configured skip lists are excluded. Persons whose username attribute is
// absent share the empty key and are dropped from person processing later.
func (r *Reader) Persons(mode Mode) (map[string]PersonEntry, error) {
	persons := map[string]PersonEntry{}

	mc := r.cfg.Mode(string(mode))
	if mc == nil {
		return persons, nil
	}

	conn, err := r.registry.Connection(mode)
	if err != nil {
		log.Warn().Err(err).Str("mode", string(mode)).Msg("directory unavailable, skipping person read")

		return persons, nil
	}

	spec := mode.Spec()
	attrs := personAttributes(mc, spec)

	res, err := conn.Search(searchRequest(mc.Person.BaseDN, mc.Person.Filter, attrs))
	if err != nil {
		log.Warn().Err(err).Str("mode", string(mode)).Msg("person search failed, treating as empty result")

		return persons, nil
	}

	for _, e := range res.Entries {
		uid := e.GetAttributeValue(attrUID)
		uidNumber, _ := strconv.ParseInt(e.GetAttributeValue(attrUIDNumber), 10, 64)

		if uid == "" || uidNumber == 0 {
			continue
		}

		if slices.Contains(mc.Person.SkipUids, uid) || slices.Contains(mc.Person.SkipUidNumbers, uidNumber) {
			continue
		}

		p := PersonEntry{
			Uid:       uid,
			UidNumber: uidNumber,
			DN:        e.DN,
			Username:  e.GetAttributeValue(mc.UsernameAttr),
			Email:     e.GetAttributeValue(attrMail),
			Mapped:    mappedFields(e, mc.Person.FieldMapping),
			Defaults:  defaultFields(mc.Person.DefaultValues),
		}

		if spec.SingleName {
			p.Name = e.GetAttributeValue(attrCN)
		} else {
			p.FirstName = e.GetAttributeValue(attrGivenName)
			p.LastName = e.GetAttributeValue(attrSN)
		}

		persons[p.Username] = p
	}

	return persons, nil
}

// Groups returns all groups of the mode's subtree in directory result
// order, excluding skip-listed group numbers.
func (r *Reader) Groups(mode Mode) ([]GroupEntry, error) {
	var groups []GroupEntry

	mc := r.cfg.Mode(string(mode))
	if mc == nil {
		return groups, nil
	}

	conn, err := r.registry.Connection(mode)
	if err != nil {
		log.Warn().Err(err).Str("mode", string(mode)).Msg("directory unavailable, skipping group read")

		return groups, nil
	}

	attrs := groupAttributes(mc)

	res, err := conn.Search(searchRequest(mc.Group.BaseDN, mc.Group.Filter, attrs))
	if err != nil {
		log.Warn().Err(err).Str("mode", string(mode)).Msg("group search failed, treating as empty result")

		return groups, nil
	}

	for _, e := range res.Entries {
		gid, _ := strconv.ParseInt(e.GetAttributeValue(attrGIDNumber), 10, 64)
		if gid == 0 || slices.Contains(mc.Group.SkipGidNumbers, gid) {
			continue
		}

		groups = append(groups, GroupEntry{
			Gid:        gid,
			Name:       e.GetAttributeValue(attrCN),
			Admin:      mc.Person.AdminGidNumber != 0 && gid == mc.Person.AdminGidNumber,
			MemberUids: dedup(e.GetAttributeValues(attrMemberUID)),
			Mapped:     mappedFields(e, mc.Group.FieldMapping),
			Defaults:   defaultFields(mc.Group.DefaultValues),
		})
	}

	return groups, nil
}

func searchRequest(baseDN, filter string, attrs []string) *goldap.SearchRequest {
	return goldap.NewSearchRequest(
		baseDN,
		goldap.ScopeWholeSubtree,
		goldap.NeverDerefAliases,
		0, // no size limit
		0, // no time limit
		false,
		filter,
		attrs,
		nil,
	)
}

// personAttributes builds the minimal deduplicated attribute set: fixed
// identity and name attributes plus every attribute referenced by the
// mode's field mappings.
func personAttributes(mc *config.ModeConfig, spec Spec) []string {
	attrs := []string{attrUID, attrUIDNumber, attrMail, mc.UsernameAttr}

	if spec.SingleName {
		attrs = append(attrs, attrCN)
	} else {
		attrs = append(attrs, attrGivenName, attrSN)
	}

	for _, fm := range mc.Person.FieldMapping {
		attrs = append(attrs, fm.LdapField)
	}

	return dedup(attrs)
}

func groupAttributes(mc *config.ModeConfig) []string {
	attrs := []string{attrCN, attrGIDNumber, attrMemberUID}

	for _, fm := range mc.Group.FieldMapping {
		attrs = append(attrs, fm.LdapField)
	}

	return dedup(attrs)
}

// mappedFields applies the field-mapping table. A mapping only takes effect
// when the source attribute is present on the entry; absent attributes are
// not defaulted to empty values.
func mappedFields(e *goldap.Entry, mappings []config.FieldMapping) map[string]string {
	out := map[string]string{}

	for _, fm := range mappings {
		if vals := e.GetAttributeValues(fm.LdapField); len(vals) > 0 {
			out[fm.LocalField] = vals[0]
		}
	}

	return out
}

func defaultFields(defaults []config.DefaultValue) map[string]string {
	out := map[string]string{}

	for _, dv := range defaults {
		out[dv.Field] = dv.Value
	}

	return out
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
