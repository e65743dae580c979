package ldap

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/models"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/uniuri"
)

// Op classifies what a sync pass did (or, in dry-run, would do) to one record.
type Op string

const (
	// OpInsert marks a newly created local record.
	OpInsert Op = "insert"
	// OpUpdate marks a changed local record.
	OpUpdate Op = "update"
	// OpUnchanged marks a record that needed no write.
	OpUnchanged Op = "unchanged"
)

// Action reports the outcome for one record of a sync pass.
type Action struct {
	Table string
	Key   string
	Op    Op
}

// Result aggregates the outcome of one sync pass.
type Result struct {
	Inserted  int
	Updated   int
	Unchanged int
	Actions   []Action
	// Events carries the domain events of this pass in emission order.
	// Dry-run passes emit no events since nothing was written.
	Events []Event
}

func (r *Result) record(mode Mode, table, key string, op Op) {
	switch op {
	case OpInsert:
		r.Inserted++
	case OpUpdate:
		r.Updated++
	case OpUnchanged:
		r.Unchanged++
	}

	r.Actions = append(r.Actions, Action{Table: table, Key: key, Op: op})
	syncRecords.WithLabelValues(string(mode), table, string(op)).Inc()
}

// Options control a sync pass.
type Options struct {
	// DryRun computes and reports every intended write without applying it.
	DryRun bool
	// LimitUids restricts the person pass to the given directory uids.
	LimitUids []string
	// SetLoginTimestamps initializes or shifts the last/current login
	// timestamps, used by the authentication-triggered path.
	SetLoginTimestamps bool
	// MatchUsername additionally matches existing local persons by
	// username when no record carries the directory uid number yet. Only
	// the single-person path sets this, to avoid duplicate creation.
	MatchUsername bool
	// Live is an in-memory representation of the currently authenticating
	// person; every changed field is mirrored onto it so the active
	// session reflects the synchronized values without a reload.
	Live store.Record

	// limitUsername restricts the pass to one directory person, set by
	// SyncPerson.
	limitUsername string
}

// assocPair is one (local group id, directory group number) membership,
// deduplicated per person within a pass.
type assocPair struct {
	localID int64
	gid     int64
}

// Syncer reconciles directory entries against the local store. It is the
// only writer of the synchronized tables; the directory stays the only
// source of truth for directory-derived fields.
type Syncer struct {
	cfg     *config.Config
	reader  *Reader
	store   *store.Store
	encoder models.CredentialEncoder
}

// NewSyncer creates a syncer reading through the given registry and
// writing through the given store.
func NewSyncer(cfg *config.Config, registry *Registry, st *store.Store, encoder models.CredentialEncoder) *Syncer {
	return &Syncer{
		cfg:     cfg,
		reader:  NewReader(cfg, registry),
		store:   st,
		encoder: encoder,
	}
}

// SyncPersons runs one full reconciliation pass for the mode: groups first
// (building the membership associations persons depend on), then persons.
// Local records are created or updated, never deleted; a record whose
// directory entry disappeared stays untouched.
func (s *Syncer) SyncPersons(mode Mode, opts Options) (*Result, error) {
	res := &Result{}
	spec := mode.Spec()

	groups, err := s.reader.Groups(mode)
	if err != nil {
		return nil, err
	}

	privileged := map[string]bool{}
	assoc := map[string][]assocPair{}

	if err := s.syncGroups(mode, spec, groups, opts, res, privileged, assoc); err != nil {
		return nil, err
	}

	persons, err := s.reader.Persons(mode)
	if err != nil {
		return nil, err
	}

	for username, p := range persons {
		if username == "" {
			log.Warn().Str("uid", p.Uid).Str("mode", string(mode)).
				Msg("person has no username attribute, skipping")

			continue
		}

		if opts.limitUsername != "" && username != opts.limitUsername {
			continue
		}

		if len(opts.LimitUids) > 0 && !slices.Contains(opts.LimitUids, p.Uid) {
			continue
		}

		if err := s.syncPerson(mode, spec, p, assoc[p.Uid], privileged[p.Uid], opts, res); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// SyncPerson runs a pass restricted to the single directory person with
// the given username, matching existing local records by username as a
// fallback to the uid number.
func (s *Syncer) SyncPerson(mode Mode, username string, opts Options) (*Result, error) {
	opts.MatchUsername = true
	opts.limitUsername = username

	return s.SyncPersons(mode, opts)
}

// syncGroups reconciles the group entries and fills the privileged-person
// set and the per-person membership associations. The administrative group
// is never materialized locally; its members only become privileged.
func (s *Syncer) syncGroups(
	mode Mode,
	spec Spec,
	groups []GroupEntry,
	opts Options,
	res *Result,
	privileged map[string]bool,
	assoc map[string][]assocPair,
) error {
	for _, g := range groups {
		if g.Admin {
			for _, uid := range g.MemberUids {
				privileged[uid] = true
			}

			continue
		}

		fields := groupFields(g)

		var localID int64

		existing, err := s.store.FindOneBy(spec.GroupTable, "ldap_gid = ?", g.Gid)

		switch {
		case errors.Is(err, store.ErrNotFound):
			fields["tstamp"] = time.Now().Unix()

			if !opts.DryRun {
				localID, err = s.store.Insert(spec.GroupTable, fields, "ldap_gid")
				if err != nil {
					return err
				}
			}

			res.record(mode, spec.GroupTable, g.Name, OpInsert)
		case err != nil:
			return err
		default:
			localID = existing.ID()

			changes := diffFields(fields, existing)
			if len(changes) > 0 {
				changes["tstamp"] = time.Now().Unix()

				if !opts.DryRun {
					if err := s.store.Update(spec.GroupTable, localID, changes); err != nil {
						return err
					}
				}

				res.record(mode, spec.GroupTable, g.Name, OpUpdate)
			} else {
				res.record(mode, spec.GroupTable, g.Name, OpUnchanged)
			}
		}

		// A dry-run pass over a yet-to-be-created group has no local id,
		// so its memberships can't be previewed.
		if localID == 0 {
			continue
		}

		for _, uid := range g.MemberUids {
			pair := assocPair{localID: localID, gid: g.Gid}
			if !slices.Contains(assoc[uid], pair) {
				assoc[uid] = append(assoc[uid], pair)
			}
		}
	}

	return nil
}

func (s *Syncer) syncPerson(
	mode Mode,
	spec Spec,
	p PersonEntry,
	pairs []assocPair,
	privileged bool,
	opts Options,
	res *Result,
) error {
	fields := personFields(spec, p, pairs, privileged)

	existing, err := s.store.FindOneBy(spec.PersonTable, "ldap_uid_number = ?", p.UidNumber)
	if errors.Is(err, store.ErrNotFound) && opts.MatchUsername {
		existing, err = s.store.FindOneBy(spec.PersonTable, "username = ?", p.Username)
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.createPerson(mode, spec, p, fields, opts, res)
	case err != nil:
		return err
	}

	return s.updatePerson(mode, spec, p, fields, existing, opts, res)
}

// createPerson bootstraps a new local record: timestamps, a hashed random
// placeholder credential and the mode's creation defaults.
func (s *Syncer) createPerson(
	mode Mode,
	spec Spec,
	p PersonEntry,
	fields store.Record,
	opts Options,
	res *Result,
) error {
	now := time.Now().Unix()
	fields["tstamp"] = now
	fields["date_added"] = now

	if opts.SetLoginTimestamps {
		fields["last_login"] = int64(0)
		fields["current_login"] = now
	}

	// The random value is discarded after hashing. The stored credential
	// can therefore never equal anything the person might present, which
	// forces every authentication through the directory bridge.
	hash, err := s.encoder.Hash(uniuri.NewLen(uniuri.SecretLen))
	if err != nil {
		return err
	}

	fields["password"] = hash

	for k, v := range spec.BootstrapDefaults {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	if !opts.DryRun {
		if _, err := s.store.Insert(spec.PersonTable, fields, "ldap_uid_number"); err != nil {
			return err
		}

		res.Events = append(res.Events, PersonImported{Entry: p, Fields: fields})
	}

	res.record(mode, spec.PersonTable, p.Username, OpInsert)

	return nil
}

func (s *Syncer) updatePerson(
	mode Mode,
	spec Spec,
	p PersonEntry,
	fields store.Record,
	existing store.Record,
	opts Options,
	res *Result,
) error {
	changes := diffFields(fields, existing)

	if opts.SetLoginTimestamps {
		// Shift the previous login forward; counts as part of the change set.
		changes["last_login"] = asInt64(existing["current_login"])
		changes["current_login"] = time.Now().Unix()
	}

	if len(changes) == 0 {
		res.record(mode, spec.PersonTable, p.Username, OpUnchanged)

		return nil
	}

	changes["tstamp"] = time.Now().Unix()

	if !opts.DryRun {
		if err := s.store.Update(spec.PersonTable, existing.ID(), changes); err != nil {
			return err
		}

		maps.Copy(fields, changes)
		res.Events = append(res.Events, PersonUpdated{Entry: p, Fields: fields})

		if opts.Live != nil {
			maps.Copy(opts.Live, changes)
		}
	}

	res.record(mode, spec.PersonTable, p.Username, OpUpdate)

	return nil
}

// personFields builds the field set this engine manages for one person.
// The directory uid and DN are deliberately absent: they are identity and
// authentication inputs, not stored fields.
func personFields(spec Spec, p PersonEntry, pairs []assocPair, privileged bool) store.Record {
	fields := store.Record{
		"username":        p.Username,
		"email":           p.Email,
		"ldap_uid_number": p.UidNumber,
		"groups":          serializeGroupIDs(pairs),
	}

	if spec.SingleName {
		fields["name"] = p.Name
	} else {
		fields["firstname"] = p.FirstName
		fields["lastname"] = p.LastName
	}

	for k, v := range p.Mapped {
		fields[k] = v
	}

	// Static defaults always win over mapped directory values.
	for k, v := range p.Defaults {
		fields[k] = v
	}

	if spec.SupportsAdminFlag {
		fields["admin"] = privileged
	}

	return fields
}

func groupFields(g GroupEntry) store.Record {
	fields := store.Record{
		"name":     g.Name,
		"ldap_gid": g.Gid,
	}

	for k, v := range g.Mapped {
		fields[k] = v
	}

	for k, v := range g.Defaults {
		fields[k] = v
	}

	return fields
}

// serializeGroupIDs renders the ordinary-group memberships as the JSON
// array of local group ids persisted in the groups column.
func serializeGroupIDs(pairs []assocPair) string {
	ids := make([]int64, 0, len(pairs))
	for _, pair := range pairs {
		ids = append(ids, pair.localID)
	}

	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}

	return string(b)
}

// diffFields returns every managed field whose desired value differs from
// the stored one.
func diffFields(desired, existing store.Record) store.Record {
	changes := store.Record{}

	for k, v := range desired {
		if !looselyEqual(v, existing[k]) {
			changes[k] = v
		}
	}

	return changes
}

// looselyEqual compares a desired value against a stored one. Stored values
// come back as driver types (int64, float64, []byte), so both sides are
// normalized to strings; booleans normalize to "1"/"0" in the CMS manner.
func looselyEqual(a, b any) bool {
	return normalize(a) == normalize(b)
}

func normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "1"
		}

		return "0"
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}

		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}

	return 0
}
