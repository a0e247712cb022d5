package domain

import "strings"

// Contact holds the CRM contact properties a spreadsheet row can populate.
type Contact struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Company   string
}

// Property names as the CRM knows them.
const (
	PropEmail     = "email"
	PropFirstName = "firstname"
	PropLastName  = "lastname"
	PropPhone     = "phone"
	PropCompany   = "company"
)

// headerAliases maps each contact property to the spreadsheet header
// spellings it is commonly found under. Matching is done on the
// normalized form (lowercase, alphanumeric only).
var headerAliases = map[string][]string{
	PropEmail:     {"email", "e-mail", "mail"},
	PropFirstName: {"first name", "firstname", "first_name", "given name"},
	PropLastName:  {"last name", "lastname", "last_name", "surname"},
	PropPhone:     {"phone", "phone number", "mobile", "mobile phone"},
	PropCompany:   {"company", "account", "organisation", "organization"},
}

// Props returns only the populated properties, so an update never blanks
// a field the CRM already has.
func (c Contact) Props() map[string]string {
	props := make(map[string]string, 5)
	for name, v := range map[string]string{
		PropEmail:     c.Email,
		PropFirstName: c.FirstName,
		PropLastName:  c.LastName,
		PropPhone:     c.Phone,
		PropCompany:   c.Company,
	} {
		if v != "" {
			props[name] = v
		}
	}
	return props
}

// NormalizeHeader lowercases a header and strips everything that is not a
// letter or digit, so "E-Mail ", "e_mail" and "email" compare equal.
func NormalizeHeader(s string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(strings.TrimSpace(s)) {
		if ('a' <= ch && ch <= 'z') || ('0' <= ch && ch <= '9') {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// MapRow maps one row onto a Contact.
//
// When mapping is non-nil it wins: each entry names the header that feeds a
// property, and headers that do not appear are ignored. Without a mapping
// the alias heuristics pick the first matching header per property.
// The email is normalized to trimmed lowercase either way.
func MapRow(headers, values []string, mapping map[string]string) Contact {
	var c Contact

	set := func(prop, v string) {
		switch prop {
		case PropEmail:
			c.Email = v
		case PropFirstName:
			c.FirstName = v
		case PropLastName:
			c.LastName = v
		case PropPhone:
			c.Phone = v
		case PropCompany:
			c.Company = v
		}
	}

	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = NormalizeHeader(h)
	}

	if mapping != nil {
		for prop, header := range mapping {
			wanted := NormalizeHeader(header)
			for i, h := range norm {
				if h == wanted && i < len(values) {
					set(prop, values[i])
					break
				}
			}
		}
	} else {
		for prop, aliases := range headerAliases {
			for i, h := range norm {
				if matchesAlias(h, aliases) {
					if i < len(values) {
						set(prop, values[i])
					}
					break
				}
			}
		}
	}

	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c
}

func matchesAlias(normalized string, aliases []string) bool {
	for _, a := range aliases {
		if normalized == NormalizeHeader(a) {
			return true
		}
	}
	return false
}
