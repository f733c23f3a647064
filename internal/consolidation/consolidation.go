// Package consolidation implements component M (spec §4.6): turning a batch
// of not-yet-consolidated episodes into new semantic/factual/merged
// episodes by dispatching to a text-completion collaborator per strategy.
package consolidation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/qilbeedb/qilbeedb/internal/collab"
	"github.com/qilbeedb/qilbeedb/internal/memory"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/temporal"
)

// Strategy names a consolidation approach.
type Strategy int

const (
	Summarize Strategy = iota
	ExtractFacts
	Merge
	BuildGraph
)

func (s Strategy) String() string {
	switch s {
	case Summarize:
		return "Summarize"
	case ExtractFacts:
		return "ExtractFacts"
	case Merge:
		return "Merge"
	case BuildGraph:
		return "BuildGraph"
	default:
		return "Unknown"
	}
}

// KindSemanticMemory and KindFactualMemory are the episode kinds produced by
// Summarize/ExtractFacts; Merge produces an observation, matching the
// grouped episodes' own nature rather than inventing a new kind.
const (
	KindSemanticMemory memory.Kind = "semantic_memory"
	KindFactualMemory  memory.Kind = "factual_memory"
)

// Config governs batch selection and the Merge strategy's grouping
// threshold (spec §4.6: "Batch size and minimum episodes to attempt are
// configurable").
type Config struct {
	DefaultStrategy          Strategy
	MinEpisodes              int
	MaxBatchSize             int
	MergeSimilarityThreshold float64 // Jaccard word-similarity, [0, 1]
	MarkConsolidated         bool
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy:          Summarize,
		MinEpisodes:              3,
		MaxBatchSize:             10,
		MergeSimilarityThreshold: 0.8,
		MarkConsolidated:         true,
	}
}

// Result reports what a consolidation pass did.
type Result struct {
	EpisodesProcessed int
	MemoriesCreated   int
	Strategy          Strategy
	Details           string
}

// ExtractedFact is one fact parsed from an ExtractFacts collaborator
// response.
type ExtractedFact struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// Service orchestrates consolidation over an AgentMemory using llm as the
// text-completion collaborator (spec §6).
type Service struct {
	config Config
	llm    collab.TextCompleter
}

// NewService binds config to llm.
func NewService(config Config, llm collab.TextCompleter) *Service {
	return &Service{config: config, llm: llm}
}

// Consolidate runs the service's default strategy.
func (s *Service) Consolidate(ctx context.Context, mem *memory.AgentMemory) (*Result, error) {
	return s.ConsolidateWithStrategy(ctx, mem, s.config.DefaultStrategy)
}

// ConsolidateWithStrategy selects candidates and dispatches to strategy.
func (s *Service) ConsolidateWithStrategy(ctx context.Context, mem *memory.AgentMemory, strategy Strategy) (*Result, error) {
	candidates := s.candidates(mem, s.config.MaxBatchSize)
	if len(candidates) < s.config.MinEpisodes {
		return &Result{Strategy: strategy}, nil
	}

	var (
		result *Result
		err    error
	)
	switch strategy {
	case Summarize:
		result, err = s.summarize(ctx, mem, candidates)
	case ExtractFacts:
		result, err = s.extractFacts(ctx, mem, candidates)
	case Merge:
		result, err = s.merge(ctx, mem, candidates)
	case BuildGraph:
		result = &Result{Strategy: BuildGraph, Details: "BuildGraph strategy requires graph integration"}
	default:
		return nil, qerrors.Wrap("consolidation.ConsolidateWithStrategy", fmt.Errorf("%w: unknown strategy", qerrors.ErrValidation))
	}
	if err != nil {
		return nil, err
	}

	if s.config.MarkConsolidated && result.EpisodesProcessed > 0 {
		n := result.EpisodesProcessed
		if n > len(candidates) {
			n = len(candidates)
		}
		for _, ep := range candidates[:n] {
			ep.Consolidated = true
		}
	}

	return result, nil
}

// candidates returns the not-yet-consolidated, valid, most-recent episodes
// up to limit.
func (s *Service) candidates(mem *memory.AgentMemory, limit int) []*memory.Episode {
	recent := mem.Recent(limit * 2)
	out := make([]*memory.Episode, 0, limit)
	for _, ep := range recent {
		if ep.Consolidated || !ep.IsValid() {
			continue
		}
		out = append(out, ep)
		if len(out) == limit {
			break
		}
	}
	return out
}

func searchableText(ep *memory.Episode) string {
	if ep.Content.Secondary != "" {
		return ep.Content.Primary + " " + ep.Content.Secondary
	}
	return ep.Content.Primary
}

func (s *Service) summarize(ctx context.Context, mem *memory.AgentMemory, episodes []*memory.Episode) (*Result, error) {
	var b strings.Builder
	for i, ep := range episodes {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, ep.Kind, searchableText(ep))
	}

	agentID := episodes[0].AgentID
	userPrompt := fmt.Sprintf(
		"Please summarize the following %d episodes from agent '%s':\n\n%s\nProvide a concise summary that captures the key events, decisions, and outcomes.",
		len(episodes), agentID, b.String())

	resp, err := s.llm.Complete(ctx, collab.CompletionRequest{SystemPrompt: summarizeSystemPrompt, UserPrompt: userPrompt})
	if err != nil {
		return nil, qerrors.Wrap("consolidation.summarize", fmt.Errorf("%w: %v", qerrors.ErrInternal, err))
	}
	if resp == nil {
		resp = &collab.CompletionResponse{}
	}

	if err := mem.Insert(newEpisode(agentID, KindSemanticMemory, resp.Content)); err != nil {
		return nil, qerrors.Wrap("consolidation.summarize", err)
	}

	return &Result{EpisodesProcessed: len(episodes), MemoriesCreated: 1, Strategy: Summarize, Details: resp.Content}, nil
}

func (s *Service) extractFacts(ctx context.Context, mem *memory.AgentMemory, episodes []*memory.Episode) (*Result, error) {
	texts := make([]string, len(episodes))
	for i, ep := range episodes {
		texts[i] = searchableText(ep)
	}
	userPrompt := fmt.Sprintf("Extract key facts from the following episodes:\n\n%s\n\nReturn the facts as a JSON array.",
		strings.Join(texts, "\n---\n"))

	resp, err := s.llm.Complete(ctx, collab.CompletionRequest{SystemPrompt: extractFactsSystemPrompt, UserPrompt: userPrompt})
	if err != nil {
		return nil, qerrors.Wrap("consolidation.extractFacts", fmt.Errorf("%w: %v", qerrors.ErrInternal, err))
	}
	if resp == nil {
		resp = &collab.CompletionResponse{}
	}

	facts := parseFacts(resp.Content)
	agentID := episodes[0].AgentID
	for _, fact := range facts {
		text := fmt.Sprintf("%s %s %s", fact.Subject, fact.Predicate, fact.Object)
		ep := newEpisode(agentID, KindFactualMemory, text)
		structured := property.Map(map[string]property.Value{
			"subject":    property.String(fact.Subject),
			"predicate":  property.String(fact.Predicate),
			"object":     property.String(fact.Object),
			"confidence": property.Float(fact.Confidence),
		})
		ep.Content.Structured = &structured
		if err := mem.Insert(ep); err != nil {
			return nil, qerrors.Wrap("consolidation.extractFacts", err)
		}
	}

	return &Result{
		EpisodesProcessed: len(episodes),
		MemoriesCreated:   len(facts),
		Strategy:          ExtractFacts,
		Details:           fmt.Sprintf("Extracted %d facts", len(facts)),
	}, nil
}

// parseFacts parses resp as a JSON array of ExtractedFact, recovering from a
// collaborator response wrapped in surrounding prose by slicing out the
// outermost '[' ... ']' span before falling back to storing the raw text as
// a single low-confidence fact (spec §4.6).
func parseFacts(resp string) []ExtractedFact {
	var facts []ExtractedFact
	if err := json.Unmarshal([]byte(resp), &facts); err == nil {
		return facts
	}

	if start := strings.Index(resp, "["); start >= 0 {
		if end := strings.LastIndex(resp, "]"); end >= start {
			if err := json.Unmarshal([]byte(resp[start:end+1]), &facts); err == nil {
				return facts
			}
		}
	}

	return []ExtractedFact{{Subject: "agent", Predicate: "learned", Object: resp, Confidence: 0.5}}
}

func (s *Service) merge(ctx context.Context, mem *memory.AgentMemory, episodes []*memory.Episode) (*Result, error) {
	if len(episodes) < 2 {
		return &Result{Strategy: Merge}, nil
	}

	groups := groupSimilar(episodes, s.config.MergeSimilarityThreshold)
	if len(groups) == 0 {
		return &Result{Strategy: Merge, Details: "No similar episode groups found"}, nil
	}

	var processed, created int
	for _, group := range groups {
		texts := make([]string, len(group))
		for i, ep := range group {
			texts[i] = searchableText(ep)
		}
		userPrompt := fmt.Sprintf("Merge the following %d similar episodes into a single consolidated episode:\n\n%s",
			len(group), strings.Join(texts, "\n---\n"))

		resp, err := s.llm.Complete(ctx, collab.CompletionRequest{SystemPrompt: mergeSystemPrompt, UserPrompt: userPrompt})
		if err != nil {
			return nil, qerrors.Wrap("consolidation.merge", fmt.Errorf("%w: %v", qerrors.ErrInternal, err))
		}
		if resp == nil {
			resp = &collab.CompletionResponse{}
		}

		if err := mem.Insert(newEpisode(group[0].AgentID, memory.KindObservation, resp.Content)); err != nil {
			return nil, qerrors.Wrap("consolidation.merge", err)
		}
		processed += len(group)
		created++
	}

	return &Result{
		EpisodesProcessed: processed,
		MemoriesCreated:   created,
		Strategy:          Merge,
		Details:           fmt.Sprintf("Merged %d episodes into %d memories", processed, created),
	}, nil
}

// groupSimilar greedily groups episodes whose Jaccard word-similarity to the
// group's first (unused) member is at least threshold.
func groupSimilar(episodes []*memory.Episode, threshold float64) [][]*memory.Episode {
	used := make([]bool, len(episodes))
	var groups [][]*memory.Episode

	for i := range episodes {
		if used[i] {
			continue
		}
		group := []*memory.Episode{episodes[i]}
		used[i] = true

		for j := i + 1; j < len(episodes); j++ {
			if used[j] {
				continue
			}
			if jaccardSimilarity(searchableText(episodes[i]), searchableText(episodes[j])) >= threshold {
				group = append(group, episodes[j])
				used[j] = true
			}
		}

		if len(group) >= 2 {
			groups = append(groups, group)
		}
	}

	return groups
}

func jaccardSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func newEpisode(agentID string, kind memory.Kind, primary string) *memory.Episode {
	now := temporal.NowTxTime()
	return &memory.Episode{
		ID:      uuid.New(),
		AgentID: agentID,
		Kind:    kind,
		Record: temporal.Record{
			EventTime:       temporal.NowEventTime(),
			TransactionTime: now,
		},
		Content: memory.Content{Primary: primary},
		Relevance: memory.Relevance{
			Score:      1.0,
			LastAccess: now.Millis(),
		},
	}
}

const summarizeSystemPrompt = `You are a memory consolidation assistant for an AI agent system.
Your task is to summarize episodic memories into concise semantic memories.
Focus on:
- Key events and their outcomes
- Important decisions made
- Lessons learned
- Patterns observed
Keep summaries factual and concise (2-4 sentences).`

const extractFactsSystemPrompt = `You are a fact extraction assistant for an AI agent system.
Extract structured facts from episodic memories as JSON.
Each fact should have:
- subject: The entity the fact is about
- predicate: The relationship or property
- object: The value or related entity
- confidence: Your confidence (0.0-1.0)

Return ONLY a JSON array like:
[{"subject": "agent", "predicate": "learned", "object": "skill", "confidence": 0.9}]`

const mergeSystemPrompt = `You are a memory consolidation assistant for an AI agent system.
Your task is to merge similar episodic memories into a single consolidated memory.
Combine the key information from all episodes while removing redundancy.
Keep the merged memory concise but complete.`
