// Package mapper converts platform users into the flat attribute payload the
// marketing service accepts.
package mapper

import (
	"strings"
	"time"

	"github.com/fossabot/hull-customerio/internal/models"
)

const (
	// SegmentsAttribute carries the names of the user's current segments and
	// is always sent, whitelisted or not.
	SegmentsAttribute = "hull_segments"

	accountKey     = "account"
	accountPrefix  = "account."
	flatAccountKey = "account_"
)

type field struct {
	source string
	target string
}

// Mapper picks whitelisted attributes and renames them for the service.
type Mapper struct {
	fields    []field
	namespace models.Namespace
}

// New builds a mapper from whitelist entries. An entry is either a platform
// attribute name or "platform_name:remote_name".
func New(whitelist []string, ns models.Namespace) *Mapper {
	m := &Mapper{namespace: ns}
	seen := make(map[string]bool, len(whitelist)+1)
	for _, entry := range whitelist {
		f, ok := parseField(entry)
		if !ok || seen[f.source] {
			continue
		}
		seen[f.source] = true
		m.fields = append(m.fields, f)
	}
	if !seen[SegmentsAttribute] {
		m.fields = append(m.fields, field{source: SegmentsAttribute, target: SegmentsAttribute})
	}
	return m
}

func parseField(entry string) (field, bool) {
	source, target, explicit := strings.Cut(strings.TrimSpace(entry), ":")
	source = strings.TrimSpace(source)
	if source == "" {
		return field{}, false
	}
	if strings.HasPrefix(source, accountPrefix) {
		source = flatAccountKey + strings.TrimPrefix(source, accountPrefix)
	}
	target = strings.TrimSpace(target)
	if !explicit || target == "" {
		target = TransformName(source)
	}
	return field{source: source, target: target}, true
}

// TransformName strips the "traits_" prefix and replaces every "/" with "-".
func TransformName(name string) string {
	name = strings.TrimPrefix(name, "traits_")
	return strings.ReplaceAll(name, "/", "-")
}

// Sources returns the platform attribute names the mapper picks, with account
// entries already rewritten to their flattened form.
func (m *Mapper) Sources() []string {
	out := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		out = append(out, f.source)
	}
	return out
}

// Map returns the flat payload for user. createdAt is injected when the user
// has never been synchronized or is currently deleted.
func (m *Mapper) Map(user models.User, segmentNames []string, createdAt time.Time) models.Attributes {
	source := flattenAccount(user.Attrs())
	source[SegmentsAttribute] = models.Strings(segmentNames)

	out := make(models.Attributes, len(m.fields)+2)
	for _, f := range m.fields {
		v, ok := source[f.source]
		if !ok {
			continue
		}
		putFlat(out, f.target, v)
	}

	if email := user.Email(); email != "" {
		out["email"] = models.String(email)
	}
	if models.ReadSyncState(user, m.namespace).Lifecycle() != models.Active {
		out[models.TraitCreatedAt] = models.Number(float64(createdAt.Unix()))
	}
	return out
}

// flattenAccount copies the user bag and lifts the nested account object onto
// account_<field> keys.
func flattenAccount(attrs models.Attributes) models.Attributes {
	out := attrs.Clone()
	account, ok := out[accountKey].AsObject()
	if !ok {
		return out
	}
	delete(out, accountKey)
	for k, v := range account {
		out[flatAccountKey+k] = v
	}
	return out
}

// putFlat writes v under key, spreading nested objects onto "key-child" keys.
func putFlat(out models.Attributes, key string, v models.Value) {
	if obj, ok := v.AsObject(); ok {
		for k, child := range obj {
			putFlat(out, key+"-"+TransformName(k), child)
		}
		return
	}
	if list, ok := v.AsList(); ok {
		for _, item := range list {
			if item.Kind() == models.KindObject || item.Kind() == models.KindList {
				out[key] = models.String(v.String())
				return
			}
		}
	}
	out[key] = v
}
