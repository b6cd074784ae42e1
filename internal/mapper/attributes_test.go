package mapper

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fossabot/hull-customerio/internal/models"
)

const ns = models.Namespace("customerio")

var createdAt = time.Unix(1360013296, 0)

func TestNew_RewritesAccountEntries(t *testing.T) {
	m := New([]string{
		"account.clearbit/name",
		"traits_salesforce_lead/title",
		"first_name",
		"last_name",
		"account.clearbit/geo_state",
	}, ns)

	assert.Equal(t, []string{
		"account_clearbit/name",
		"traits_salesforce_lead/title",
		"first_name",
		"last_name",
		"account_clearbit/geo_state",
		SegmentsAttribute,
	}, m.Sources())

	// building twice from the same whitelist yields the same fields
	assert.Equal(t, m.Sources(), New(m.Sources(), ns).Sources())
}

func TestMap_FlattensAccountAndRenames(t *testing.T) {
	m := New([]string{
		"account.clearbit/name",
		"traits_salesforce_lead/title",
		"first_name",
		"last_name",
		"account.clearbit/geo_state",
	}, ns)

	user := models.User{
		"email":   models.String("tb@hull.io"),
		"account": models.Object(models.Attributes{
			"clearbit/name":      models.String("Hull Inc"),
			"clearbit/geo_state": models.String("Georgia"),
		}),
		"first_name":                   models.String("Thomas"),
		"last_name":                    models.String("Bass"),
		"traits_salesforce_lead/title": models.String("Customer Success"),
	}

	got := m.Map(user, nil, createdAt)

	want := models.Attributes{
		"account_clearbit-name":      models.String("Hull Inc"),
		"salesforce_lead-title":      models.String("Customer Success"),
		"first_name":                 models.String("Thomas"),
		"last_name":                  models.String("Bass"),
		"account_clearbit-geo_state": models.String("Georgia"),
		"created_at":                 models.Number(1360013296),
		"email":                      models.String("tb@hull.io"),
		SegmentsAttribute:            models.List(),
	}
	assert.True(t, want.Equal(got), "got %s", models.Object(got))
}

func TestMap_IgnoresAccountWhenNotWhitelisted(t *testing.T) {
	m := New([]string{"traits_salesforce_lead/title", "first_name"}, ns)
	user := models.User{
		"email":                        models.String("tb@hull.io"),
		"account":                      models.Object(models.Attributes{"clearbit/name": models.String("Hull Inc")}),
		"first_name":                   models.String("Thomas"),
		"traits_salesforce_lead/title": models.String("Customer Success"),
	}

	got := m.Map(user, []string{"Leads"}, createdAt)

	assert.Len(t, got, 5)
	assert.NotContains(t, got, "account_clearbit-name")
	assert.Equal(t, `["Leads"]`, got[SegmentsAttribute].String())
}

func TestMap_CreatedAtOnlyForUnsyncedOrDeleted(t *testing.T) {
	m := New([]string{"first_name"}, ns)

	active := models.User{
		"email":                        models.String("a@b.com"),
		"first_name":                   models.String("Jo"),
		"traits_customerio/created_at": models.Number(1000),
	}
	assert.NotContains(t, m.Map(active, nil, createdAt), "created_at")

	deleted := models.User{
		"email":                        models.String("a@b.com"),
		"traits_customerio/created_at": models.Null(),
		"traits_customerio/deleted_at": models.String("2017-01-01T00:00:00Z"),
	}
	got := m.Map(deleted, nil, createdAt)
	require.Contains(t, got, "created_at")
	assert.Equal(t, "1360013296", got["created_at"].String())
}

func TestMap_ExplicitRemoteName(t *testing.T) {
	m := New([]string{"traits_plan/name:plan", "field_1:field1"}, ns)
	user := models.User{
		"email":            models.String("a@b.com"),
		"traits_plan/name": models.String("pro"),
		"field_1":          models.Number(1),
	}

	got := m.Map(user, nil, createdAt)

	assert.Equal(t, "pro", got["plan"].String())
	assert.Equal(t, "1", got["field1"].String())
	assert.NotContains(t, got, "plan-name")
}

func TestMap_NestedValuesAreFlattened(t *testing.T) {
	m := New([]string{"address", "tags"}, ns)
	user := models.User{
		"address": models.Object(models.Attributes{
			"city": models.String("Paris"),
			"geo":  models.Object(models.Attributes{"lat": models.Number(48.8)}),
		}),
		"tags": models.List(models.String("a"), models.String("b")),
	}

	got := m.Map(user, nil, createdAt)

	assert.Equal(t, "Paris", got["address-city"].String())
	assert.Equal(t, "48.8", got["address-geo-lat"].String())
	assert.Equal(t, models.KindList, got["tags"].Kind())
}

func TestProperty_MapOutputIsFlat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("no mapped value is a nested object", prop.ForAll(
		func(keys []string, depth int) bool {
			whitelist := make([]string, 0, len(keys))
			user := models.User{}
			for _, k := range keys {
				whitelist = append(whitelist, "account."+k, k)
				v := models.String(k)
				for i := 0; i < depth; i++ {
					v = models.Object(models.Attributes{k: v})
				}
				user[k] = v
			}
			account := models.Attributes{}
			for _, k := range keys {
				account[k] = models.Object(models.Attributes{"inner": models.Number(1)})
			}
			user["account"] = models.Object(account)

			for _, v := range New(whitelist, ns).Map(user, keys, createdAt) {
				if v.Kind() == models.KindObject {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
