package hashutil

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/fossabot/hull-customerio/internal/models"
)

func customer() models.Customer {
	return models.Customer{
		ID: "1",
		Attributes: models.Attributes{
			"email":      models.String("a@b.com"),
			"first_name": models.String("Jo"),
			"tags":       models.List(models.String("a"), models.String("b")),
			"address":    models.Object(models.Attributes{"city": models.String("Paris")}),
		},
	}
}

func TestHash_Deterministic(t *testing.T) {
	h := Hash(customer())

	assert.Len(t, h, 32)
	assert.Equal(t, h, Hash(customer()))
}

func TestHash_IgnoresCreatedAt(t *testing.T) {
	withCreated := customer()
	withCreated.Attributes["created_at"] = models.Number(1500000000)

	assert.Equal(t, Hash(customer()), Hash(withCreated))
	assert.NotContains(t, customer().Attributes, "created_at")
}

func TestHash_SensitiveToEveryField(t *testing.T) {
	base := Hash(customer())

	changedID := customer()
	changedID.ID = "2"

	changedNested := customer()
	changedNested.Attributes["address"] = models.Object(models.Attributes{"city": models.String("Lyon")})

	changedList := customer()
	changedList.Attributes["tags"] = models.List(models.String("b"), models.String("a"))

	changedType := customer()
	changedType.Attributes["first_name"] = models.Number(1)

	for name, c := range map[string]models.Customer{
		"id":     changedID,
		"nested": changedNested,
		"list":   changedList,
		"type":   changedType,
	} {
		assert.NotEqual(t, base, Hash(c), name)
	}
}

func TestProperty_HashIgnoresInsertionOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same attributes hash equal regardless of build order", prop.ForAll(
		func(keys []string, values []string) bool {
			forward := models.Attributes{}
			backward := models.Attributes{}
			for i, k := range keys {
				v := models.String(k)
				if i < len(values) {
					v = models.String(values[i])
				}
				forward[k] = v
			}
			for i := len(keys) - 1; i >= 0; i-- {
				backward[keys[i]] = forward[keys[i]]
			}
			return Hash(models.Customer{ID: "x", Attributes: forward}) ==
				Hash(models.Customer{ID: "x", Attributes: backward})
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
