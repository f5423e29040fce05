package ai

import "testing"

func TestDefaultModels(t *testing.T) {
	p := DefaultModels(ProviderGemini)
	if p.Translate != "gemini-2.0-flash" || p.Compose != "gemini-1.5-flash" {
		t.Fatalf("unexpected gemini pair: %+v", p)
	}
	if got := DefaultModels("unknown"); got != p {
		t.Fatalf("unknown provider should fall back to gemini, got %+v", got)
	}
	if DefaultModels(ProviderOllama).Translate == "" {
		t.Fatalf("ollama pair missing translate model")
	}
}

func TestCatalogFor(t *testing.T) {
	list := CatalogFor(ProviderOllama)
	if len(list) == 0 {
		t.Fatalf("expected ollama entries")
	}
	for i, mi := range list {
		if mi.Provider != ProviderOllama {
			t.Fatalf("foreign entry %+v", mi)
		}
		if i > 0 && list[i-1].Name > mi.Name {
			t.Fatalf("catalog not sorted")
		}
	}
	if _, ok := LookupModel("gemini-2.0-flash"); !ok {
		t.Fatalf("expected gemini-2.0-flash in catalog")
	}
}

func TestProvidersRegistered(t *testing.T) {
	got := Providers()
	want := map[string]bool{ProviderGemini: true, ProviderOpenRouter: true, ProviderOllama: true}
	for _, p := range got {
		delete(want, p)
	}
	if len(want) != 0 {
		t.Fatalf("missing providers: %v", want)
	}
}
