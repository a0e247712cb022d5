package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMapRow_AliasHeuristics verifies that common header spellings land on
// the right contact properties without an explicit mapping.
func TestMapRow_AliasHeuristics(t *testing.T) {
	headers := []string{"E-Mail", "First Name", "Surname", "Mobile Phone", "Organisation"}
	values := []string{"Ada@Example.com", "Ada", "Lovelace", "+44 1234", "Analytical Engines"}

	c := MapRow(headers, values, nil)

	assert.Equal(t, "ada@example.com", c.Email, "email should be trimmed and lowercased")
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "Lovelace", c.LastName)
	assert.Equal(t, "+44 1234", c.Phone)
	assert.Equal(t, "Analytical Engines", c.Company)
}

// TestMapRow_ExplicitMappingWins verifies the sidebar mapping overrides
// the heuristics entirely, including for headers the aliases would never
// match.
func TestMapRow_ExplicitMappingWins(t *testing.T) {
	headers := []string{"Contact Address", "Who"}
	values := []string{"grace@example.com", "Grace"}

	c := MapRow(headers, values, map[string]string{
		"email":     "Contact Address",
		"firstname": "Who",
	})

	assert.Equal(t, "grace@example.com", c.Email)
	assert.Equal(t, "Grace", c.FirstName)
	assert.Empty(t, c.LastName)
}

func TestMapRow_MappingIgnoresUnknownHeaders(t *testing.T) {
	c := MapRow([]string{"Email"}, []string{"x@y.z"}, map[string]string{
		"email": "No Such Column",
	})
	assert.Empty(t, c.Email)
}

// TestMapRow_ShortRow verifies a row with fewer cells than headers does
// not panic and simply leaves the missing properties empty.
func TestMapRow_ShortRow(t *testing.T) {
	headers := []string{"email", "first name", "last name"}
	values := []string{"a@b.c"}

	c := MapRow(headers, values, nil)

	assert.Equal(t, "a@b.c", c.Email)
	assert.Empty(t, c.FirstName)
	assert.Empty(t, c.LastName)
}

func TestContact_PropsDropsEmpties(t *testing.T) {
	c := Contact{Email: "a@b.c", Phone: "123"}
	props := c.Props()

	assert.Equal(t, map[string]string{"email": "a@b.c", "phone": "123"}, props)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "email", NormalizeHeader(" E-Mail "))
	assert.Equal(t, "firstname", NormalizeHeader("First_Name"))
	assert.Equal(t, "phone2", NormalizeHeader("Phone 2"))
	assert.Equal(t, "", NormalizeHeader("  --  "))
}
