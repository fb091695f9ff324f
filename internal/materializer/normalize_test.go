package materializer

import "testing"

func TestNormalizeTypeSynonyms(t *testing.T) {
	t.Parallel()

	// All spellings of the same type must land on one canonical label.
	variants := []string{"Full-time", "full time", "tempo integral", "FULLTIME", "Tempo-Integral"}
	for _, v := range variants {
		if got := NormalizeType(v); got != TypeFullTime {
			t.Fatalf("NormalizeType(%q) = %q, want %q", v, got, TypeFullTime)
		}
	}

	cases := map[string]string{
		"part-time":    TypePartTime,
		"Meio Período": TypePartTime,
		"PJ":           TypeContract,
		"contrato":     TypeContract,
		"freelancer":   TypeFreelance,
		"Temporário":   TypeTemporary,
		"estágio":      TypeInternship,
		"trainee":      TypeInternship,
	}
	for in, want := range cases {
		if got := NormalizeType(in); got != want {
			t.Fatalf("NormalizeType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeTypeDefaultsToFullTime(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"", "   ", "algo inesperado", "40h/semana"} {
		if got := NormalizeType(v); got != TypeFullTime {
			t.Fatalf("NormalizeType(%q) = %q, want default %q", v, got, TypeFullTime)
		}
	}
}

func TestExtractRegion(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"São Paulo - SP":        "São Paulo",
		"Curitiba, PR":          "Paraná",
		"rio de janeiro":        "Rio de Janeiro",
		"Belo Horizonte/MG":     "Minas Gerais",
		"Remote":                "Remote",
		"Remote - Worldwide":    "Remote",
		"Porto Alegre - Centro": "Porto Alegre",
	}
	for in, want := range cases {
		if got := ExtractRegion(in); got != want {
			t.Fatalf("ExtractRegion(%q) = %q, want %q", in, got, want)
		}
	}

	if got := ExtractRegion(""); got != "" {
		t.Fatalf("empty location must yield empty region, got %q", got)
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	positives := [][]string{
		{"Dev", "Trabalho 100% REMOTO", ""},
		{"Dev", "vaga em home office", ""},
		{"Remote Backend Engineer", "desc", ""},
		{"Dev", "regime de teletrabalho", ""},
		{"Dev", "desc", "Trabalho Remoto"},
	}
	for _, parts := range positives {
		if !IsRemote(parts...) {
			t.Fatalf("expected remote for %v", parts)
		}
	}

	if IsRemote("Dev", "presencial em São Paulo", "São Paulo - SP") {
		t.Fatalf("expected on-site job to not be remote")
	}
}
