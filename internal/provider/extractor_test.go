package provider

import (
	"testing"
	"time"

	"job-killer/internal/feed"
)

func parseFeed(t *testing.T, payload string) *feed.Feed {
	t.Helper()
	doc, err := feed.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("parse test feed: %v", err)
	}
	return doc
}

func TestExtractWPJobManagerFeed(t *testing.T) {
	t.Parallel()

	doc := parseFeed(t, `<?xml version="1.0"?>
<rss version="2.0" xmlns:job_listing="https://wpjobmanager.com/xml/job_listing/">
<channel>
<title>Vagas</title>
<link>https://example.com.br</link>
<item>
	<title>Analista de Dados</title>
	<description>Análise de dados em time remoto.</description>
	<job_listing:company>Dados SA</job_listing:company>
	<job_listing:location>Belo Horizonte - MG</job_listing:location>
	<job_listing:job_type>Tempo Integral</job_listing:job_type>
	<job_listing:salary>R$ 8.000</job_listing:salary>
	<link>/vagas/analista</link>
	<pubDate>Tue, 05 Mar 2024 09:00:00 +0000</pubDate>
</item>
</channel>
</rss>`)

	registry := NewRegistry()
	candidates := Extract(doc, registry.Get("wpjobmanager"), "feed-1")
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.Company != "Dados SA" {
		t.Fatalf("company: got %q", c.Company)
	}
	if c.Location != "Belo Horizonte - MG" {
		t.Fatalf("location: got %q", c.Location)
	}
	if c.EmploymentType != "Tempo Integral" {
		t.Fatalf("employment type: got %q", c.EmploymentType)
	}
	if c.Salary != "R$ 8.000" {
		t.Fatalf("salary: got %q", c.Salary)
	}
	if c.URL != "https://example.com.br/vagas/analista" {
		t.Fatalf("relative url not resolved: got %q", c.URL)
	}
	if c.FeedID != "feed-1" {
		t.Fatalf("feed id: got %q", c.FeedID)
	}
	want := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	if !c.PublishedAt.Equal(want) {
		t.Fatalf("published at: got %v, want %v", c.PublishedAt, want)
	}
}

func TestExtractIndeedRegexRules(t *testing.T) {
	t.Parallel()

	doc := parseFeed(t, `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Indeed</title>
<link>https://www.indeed.com.br</link>
<item>
	<title>Engenheiro de Software</title>
	<description>Company: TechBR. Location: Curitiba, PR. Vaga para engenheiro.</description>
	<link>https://www.indeed.com.br/viewjob?jk=1</link>
</item>
</channel>
</rss>`)

	registry := NewRegistry()
	candidates := Extract(doc, registry.Get("indeed"), "indeed-feed")
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.Company != "TechBR" {
		t.Fatalf("regex company extraction: got %q", c.Company)
	}
	if c.Location != "Curitiba, PR" {
		t.Fatalf("regex location extraction: got %q", c.Location)
	}
}

func TestExtractLinkedInTitlePattern(t *testing.T) {
	t.Parallel()

	doc := parseFeed(t, `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>LinkedIn</title>
<link>https://www.linkedin.com</link>
<item>
	<title>Backend Engineer at Acme in Lisboa</title>
	<description>Vaga de backend.</description>
	<link>https://www.linkedin.com/jobs/view/1</link>
</item>
<item>
	<title>Designer at Studio</title>
	<description>Vaga de design.</description>
	<link>https://www.linkedin.com/jobs/view/2</link>
</item>
</channel>
</rss>`)

	registry := NewRegistry()
	candidates := Extract(doc, registry.Get("linkedin"), "li-feed")
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Title != "Backend Engineer" {
		t.Fatalf("title split: got %q", first.Title)
	}
	if first.Company != "Acme" {
		t.Fatalf("company split: got %q", first.Company)
	}
	if first.Location != "Lisboa" {
		t.Fatalf("location split: got %q", first.Location)
	}

	second := candidates[1]
	if second.Title != "Designer" || second.Company != "Studio" {
		t.Fatalf("split without location: got title %q company %q", second.Title, second.Company)
	}
	if second.Location != "" {
		t.Fatalf("expected empty location, got %q", second.Location)
	}
}

func TestExtractDropsItemsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	doc := parseFeed(t, `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Feed</title>
<link>https://example.com</link>
<item>
	<title>Com descrição</title>
	<description>Tudo certo.</description>
	<link>https://example.com/1</link>
</item>
<item>
	<title>Sem descrição</title>
	<link>https://example.com/2</link>
</item>
<item>
	<description>Sem título.</description>
	<link>https://example.com/3</link>
</item>
</channel>
</rss>`)

	registry := NewRegistry()
	candidates := Extract(doc, registry.Get(GenericID), "f")
	if len(candidates) != 1 {
		t.Fatalf("expected only the complete item to survive, got %d", len(candidates))
	}
	if candidates[0].Title != "Com descrição" {
		t.Fatalf("unexpected survivor %q", candidates[0].Title)
	}
}

func TestMappingOverrideTakesPrecedence(t *testing.T) {
	t.Parallel()

	doc := parseFeed(t, `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Feed</title>
<link>https://example.com</link>
<item>
	<title>Vaga</title>
	<description>Descrição.</description>
	<empresa>Minha Empresa</empresa>
	<link>https://example.com/1</link>
</item>
</channel>
</rss>`)

	registry := NewRegistry()
	cfg := MappingOverride(registry.Get(GenericID), map[string]any{FieldCompany: "empresa"})
	candidates := Extract(doc, cfg, "f")
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Company != "Minha Empresa" {
		t.Fatalf("override mapping not applied: got %q", candidates[0].Company)
	}
}
