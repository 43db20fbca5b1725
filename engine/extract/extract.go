// Package extract turns document chunks into graph entities and relationships
// using the Anthropic API, then reconciles duplicates across chunks.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/pkg/resilience"
)

// Entity is an extracted node candidate. TempID scopes references within one
// extraction response.
type Entity struct {
	TempID     string         `json:"temp_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Relationship is an extracted edge candidate referencing temp ids.
type Relationship struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ChunkResult is the outcome of extracting one chunk.
type ChunkResult struct {
	Entities      []Entity
	Relationships []Relationship
	TokensUsed    int
}

// DocumentResult is the reconciled outcome across all chunks of a document.
type DocumentResult struct {
	Entities          []Entity
	Relationships     []Relationship
	TotalTokensUsed   int
	ChunksProcessed   int
	DeduplicatedCount int
}

// Service calls the extraction model. Unconfigured (no API key) it reports
// itself as such and the pipeline skips extraction.
type Service struct {
	client     anthropic.Client
	configured bool
	model      string
	maxTokens  int64
	breaker    *resilience.Breaker
	log        *slog.Logger
}

// New builds the extraction service.
func New(apiKey, model string, breaker *resilience.Breaker, log *slog.Logger) *Service {
	s := &Service{model: model, maxTokens: 4096, breaker: breaker, log: log}
	if apiKey != "" {
		s.client = anthropic.NewClient(option.WithAPIKey(apiKey))
		s.configured = true
	} else {
		log.Warn("extraction service unconfigured, documents will not be extracted")
	}
	return s
}

// Configured reports whether a provider key is present.
func (s *Service) Configured() bool { return s.configured }

// ExtractFromChunk extracts entities and relationships from one chunk of
// text. contextInfo (filename, project) is surfaced to the model.
func (s *Service) ExtractFromChunk(ctx context.Context, text string, ct domain.ContentType, contextInfo map[string]string) (ChunkResult, error) {
	if !s.configured {
		return ChunkResult{}, nil
	}

	var user strings.Builder
	for _, k := range sortedKeys(contextInfo) {
		fmt.Fprintf(&user, "%s: %s\n", k, contextInfo[k])
	}
	user.WriteString("\n")
	user.WriteString(text)

	var msg *anthropic.Message
	call := func() error {
		var err error
		msg, err = s.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(s.model),
			MaxTokens: s.maxTokens,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt(ct)}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user.String())),
			},
		})
		return err
	}
	var err error
	if s.breaker != nil {
		err = s.breaker.Do(call)
	} else {
		err = call()
	}
	if err != nil {
		return ChunkResult{}, fmt.Errorf("extraction call: %w", err)
	}

	var raw strings.Builder
	for _, block := range msg.Content {
		raw.WriteString(block.Text)
	}
	entities, relationships, err := parseResponse(raw.String())
	if err != nil {
		return ChunkResult{}, err
	}
	return ChunkResult{
		Entities:      entities,
		Relationships: relationships,
		TokensUsed:    int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

// ExtractFromDocument runs per-chunk extraction and reconciles the results.
// A failed chunk is logged and skipped; with the breaker open the remaining
// chunks fail fast.
func (s *Service) ExtractFromDocument(ctx context.Context, chunks []string, ct domain.ContentType, contextInfo map[string]string) (DocumentResult, error) {
	var all []Entity
	var rels []Relationship
	result := DocumentResult{}

	for i, text := range chunks {
		cr, err := s.ExtractFromChunk(ctx, text, ct, contextInfo)
		if err != nil {
			if errors.Is(err, resilience.ErrOpen) {
				s.log.Warn("extraction breaker open, skipping remaining chunks",
					"chunk", i, "remaining", len(chunks)-i)
				break
			}
			s.log.Warn("chunk extraction failed", "chunk", i, "error", err)
			continue
		}
		prefix := fmt.Sprintf("c%d_", i)
		for _, e := range cr.Entities {
			e.TempID = prefix + e.TempID
			all = append(all, e)
		}
		for _, r := range cr.Relationships {
			r.Source = prefix + r.Source
			r.Target = prefix + r.Target
			rels = append(rels, r)
		}
		result.TotalTokensUsed += cr.TokensUsed
		result.ChunksProcessed++
	}

	deduped, idMap := dedupeEntities(all)
	result.Entities = deduped
	result.Relationships = reconcileRelationships(rels, idMap)
	result.DeduplicatedCount = len(all) - len(deduped)
	return result, nil
}

var fencedJSONRe = regexp.MustCompile("```(?:json)?\\s*((?s:.+?))```")

type rawResponse struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// parseResponse pulls the fenced JSON object out of the model output and
// drops entries with empty names or dangling endpoints.
func parseResponse(text string) ([]Entity, []Relationship, error) {
	payload := text
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		payload = m[1]
	}
	payload = strings.TrimSpace(payload)

	var raw rawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, nil, fmt.Errorf("malformed extraction response: %w", err)
	}

	entities := make([]Entity, 0, len(raw.Entities))
	for _, e := range raw.Entities {
		if strings.TrimSpace(e.Name) == "" || e.TempID == "" {
			continue
		}
		if _, err := domain.ParseEntityType(e.Type); err != nil {
			continue
		}
		entities = append(entities, e)
	}
	relationships := make([]Relationship, 0, len(raw.Relationships))
	for _, r := range raw.Relationships {
		if r.Source == "" || r.Target == "" {
			continue
		}
		if _, err := domain.ParseRelationshipType(r.Type); err != nil {
			continue
		}
		relationships = append(relationships, r)
	}
	return entities, relationships, nil
}

// sortedKeys keeps the prompt header deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
