package materializer

import "strings"

// Canonical employment type labels.
const (
	TypeFullTime   = "Full Time"
	TypePartTime   = "Part Time"
	TypeContract   = "Contract"
	TypeFreelance  = "Freelance"
	TypeTemporary  = "Temporary"
	TypeInternship = "Internship"
)

// typeSynonyms maps normalized free-text employment types to the canonical
// vocabulary. Keys are lowercased with hyphens and underscores folded to
// spaces.
var typeSynonyms = map[string]string{
	"full time":      TypeFullTime,
	"fulltime":       TypeFullTime,
	"tempo integral": TypeFullTime,
	"integral":       TypeFullTime,
	"efetivo":        TypeFullTime,
	"clt":            TypeFullTime,
	"part time":      TypePartTime,
	"parttime":       TypePartTime,
	"meio periodo":   TypePartTime,
	"meio período":   TypePartTime,
	"contract":       TypeContract,
	"contractor":     TypeContract,
	"contrato":       TypeContract,
	"pj":             TypeContract,
	"freelance":      TypeFreelance,
	"freelancer":     TypeFreelance,
	"freela":         TypeFreelance,
	"temporary":      TypeTemporary,
	"temporario":     TypeTemporary,
	"temporário":     TypeTemporary,
	"internship":     TypeInternship,
	"intern":         TypeInternship,
	"estagio":        TypeInternship,
	"estágio":        TypeInternship,
	"trainee":        TypeInternship,
}

// NormalizeType maps a free-text employment type onto the canonical
// vocabulary. Unrecognized and empty values default to Full Time.
func NormalizeType(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")
	if canonical, ok := typeSynonyms[key]; ok {
		return canonical
	}
	return TypeFullTime
}

// brazilianStates maps state abbreviations to their full names, used to
// pull a region out of free-text locations like "São Paulo - SP".
var brazilianStates = map[string]string{
	"AC": "Acre",
	"AL": "Alagoas",
	"AP": "Amapá",
	"AM": "Amazonas",
	"BA": "Bahia",
	"CE": "Ceará",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
	"GO": "Goiás",
	"MA": "Maranhão",
	"MT": "Mato Grosso",
	"MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais",
	"PA": "Pará",
	"PB": "Paraíba",
	"PR": "Paraná",
	"PE": "Pernambuco",
	"PI": "Piauí",
	"RJ": "Rio de Janeiro",
	"RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul",
	"RO": "Rondônia",
	"RR": "Roraima",
	"SC": "Santa Catarina",
	"SP": "São Paulo",
	"SE": "Sergipe",
	"TO": "Tocantins",
}

// ExtractRegion derives a region from a free-text location. Segments split
// on commas and dashes are checked against the state table, abbreviation
// or full name; with no match the text before the first delimiter is the
// region, so "Remote" stays "Remote".
func ExtractRegion(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}

	segments := strings.FieldsFunc(location, func(r rune) bool {
		return r == ',' || r == '-' || r == '–' || r == '/'
	})
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if name, ok := brazilianStates[strings.ToUpper(seg)]; ok {
			return name
		}
		for _, name := range brazilianStates {
			if strings.EqualFold(seg, name) {
				return name
			}
		}
	}

	if len(segments) > 0 {
		return strings.TrimSpace(segments[0])
	}
	return location
}

// remoteKeywords flag a listing as remote when any of them appears in the
// title, description or location.
var remoteKeywords = []string{
	"remoto",
	"remote",
	"home office",
	"trabalho remoto",
	"teletrabalho",
}

// IsRemote scans the candidate text for remote-work keywords,
// case-insensitive.
func IsRemote(parts ...string) bool {
	text := strings.ToLower(strings.Join(parts, " "))
	for _, kw := range remoteKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
