package consolidation

import (
	"context"
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/collab"
	"github.com/qilbeedb/qilbeedb/internal/collab/llmmock"
	"github.com/qilbeedb/qilbeedb/internal/memory"
)

func populate(t *testing.T, mem *memory.AgentMemory, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if err := mem.Insert(newEpisode("test-agent", memory.KindObservation, text)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestConsolidateNotEnoughEpisodes(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem, "Single event")

	svc := NewService(Config{DefaultStrategy: Summarize, MinEpisodes: 2}, &llmmock.Completer{})
	result, err := svc.Consolidate(context.Background(), mem)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if result.EpisodesProcessed != 0 || result.MemoriesCreated != 0 {
		t.Fatalf("expected no-op result, got %+v", result)
	}
}

func TestConsolidateSummarizeCreatesOneMemory(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem, "User logged in", "User viewed dashboard", "User updated settings")

	llm := &llmmock.Completer{Response: &collab.CompletionResponse{Content: "User logged in, explored the dashboard, and changed settings."}}
	svc := NewService(Config{DefaultStrategy: Summarize, MinEpisodes: 2, MaxBatchSize: 10, MarkConsolidated: true}, llm)

	result, err := svc.Consolidate(context.Background(), mem)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if result.EpisodesProcessed != 3 || result.MemoriesCreated != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(llm.Calls) != 1 {
		t.Fatalf("expected 1 llm call, got %d", len(llm.Calls))
	}

	semantic := mem.ByKind(KindSemanticMemory)
	if len(semantic) != 1 || semantic[0].Content.Primary != "User logged in, explored the dashboard, and changed settings." {
		t.Fatalf("expected the mock's response stored as a semantic memory, got %+v", semantic)
	}
}

func TestConsolidateMarksInputsConsolidated(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem, "Event 1", "Event 2", "Event 3")

	llm := &llmmock.Completer{Response: &collab.CompletionResponse{Content: "summary"}}
	svc := NewService(Config{DefaultStrategy: Summarize, MinEpisodes: 2, MaxBatchSize: 10, MarkConsolidated: true}, llm)

	if _, err := svc.Consolidate(context.Background(), mem); err != nil {
		t.Fatalf("consolidate: %v", err)
	}

	for _, ep := range mem.Recent(10) {
		if ep.Kind == KindSemanticMemory {
			continue
		}
		if !ep.Consolidated {
			t.Fatalf("expected input episode %q to be marked consolidated", ep.Content.Primary)
		}
	}
}

func TestConsolidateExtractFactsParsesJSONArray(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem, "Agent learned Python", "Agent completed task")

	llm := &llmmock.Completer{Response: &collab.CompletionResponse{
		Content: `[{"subject": "agent", "predicate": "learned", "object": "Python", "confidence": 0.9}]`,
	}}
	svc := NewService(Config{DefaultStrategy: ExtractFacts, MinEpisodes: 2, MaxBatchSize: 10}, llm)

	result, err := svc.ConsolidateWithStrategy(context.Background(), mem, ExtractFacts)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if result.MemoriesCreated != 1 {
		t.Fatalf("expected 1 fact stored, got %+v", result)
	}
	facts := mem.ByKind(KindFactualMemory)
	if len(facts) != 1 || facts[0].Content.Primary != "agent learned Python" {
		t.Fatalf("unexpected fact episode: %+v", facts)
	}
}

func TestConsolidateExtractFactsRecoversWrappedJSON(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem, "Agent learned Python", "Agent completed task")

	llm := &llmmock.Completer{Response: &collab.CompletionResponse{
		Content: `Sure, here are the facts: [{"subject": "agent", "predicate": "learned", "object": "Go", "confidence": 0.7}] Hope that helps!`,
	}}
	svc := NewService(Config{DefaultStrategy: ExtractFacts, MinEpisodes: 2, MaxBatchSize: 10}, llm)

	result, err := svc.ConsolidateWithStrategy(context.Background(), mem, ExtractFacts)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if result.MemoriesCreated != 1 {
		t.Fatalf("expected recovery to parse 1 fact, got %+v", result)
	}
}

func TestConsolidateExtractFactsFallsBackToRawText(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem, "Agent learned Python", "Agent completed task")

	llm := &llmmock.Completer{Response: &collab.CompletionResponse{Content: "not json at all"}}
	svc := NewService(Config{DefaultStrategy: ExtractFacts, MinEpisodes: 2, MaxBatchSize: 10}, llm)

	result, err := svc.ConsolidateWithStrategy(context.Background(), mem, ExtractFacts)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if result.MemoriesCreated != 1 {
		t.Fatalf("expected a single fallback fact, got %+v", result)
	}
	facts := mem.ByKind(KindFactualMemory)
	if len(facts) != 1 || facts[0].Content.Primary != "agent learned not json at all" {
		t.Fatalf("unexpected fallback fact: %+v", facts)
	}
}

func TestConsolidateMergeGroupsSimilarEpisodes(t *testing.T) {
	mem := memory.NewAgentMemory("test-agent", 0)
	populate(t, mem,
		"User asked about the weather forecast for today",
		"User asked about the weather forecast tomorrow",
		"Agent processed a payment request for the user",
	)

	llm := &llmmock.Completer{Response: &collab.CompletionResponse{Content: "merged weather question"}}
	svc := NewService(Config{DefaultStrategy: Merge, MinEpisodes: 2, MaxBatchSize: 10, MergeSimilarityThreshold: 0.5}, llm)

	result, err := svc.ConsolidateWithStrategy(context.Background(), mem, Merge)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if result.MemoriesCreated != 1 || result.EpisodesProcessed != 2 {
		t.Fatalf("expected the two weather episodes merged, got %+v", result)
	}
}

func TestJaccardSimilarityIdenticalTextIsOne(t *testing.T) {
	if sim := jaccardSimilarity("hello world", "hello world"); sim != 1.0 {
		t.Fatalf("expected 1.0, got %v", sim)
	}
}

func TestJaccardSimilarityDisjointTextIsZero(t *testing.T) {
	if sim := jaccardSimilarity("hello world", "goodbye moon"); sim != 0.0 {
		t.Fatalf("expected 0.0, got %v", sim)
	}
}
