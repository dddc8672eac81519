package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dira-go/pkg/llm"
	"dira-go/pkg/log"
	"dira-go/pkg/nlp"
)

// Classification sources.
const (
	SourceModel   = "model"
	SourceKeyword = "keyword"
)

// ClassificationResult is a category decision and where it came from.
type ClassificationResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// PrimaryClassifier may fail; the caller then falls back.
type PrimaryClassifier interface {
	TryClassify(ctx context.Context, text string) (nlp.Classification, error)
	TryExtractEntities(ctx context.Context, text string) (nlp.Entities, error)
}

// FallbackClassifier always answers.
type FallbackClassifier interface {
	Classify(text string) nlp.Classification
}

// ClassificationService classifies report text, assesses urgency and extracts entities.
type ClassificationService interface {
	Classify(ctx context.Context, text string) (ClassificationResult, error)
	AssessUrgency(text string) string
	ExtractEntities(ctx context.Context, text string) nlp.Entities
}

type classificationService struct {
	primary  PrimaryClassifier
	fallback FallbackClassifier
}

// NewClassificationService creates a ClassificationService. primary may be nil.
func NewClassificationService(primary PrimaryClassifier, fallback FallbackClassifier) ClassificationService {
	if fallback == nil {
		fallback = nlp.KeywordClassifier{}
	}
	return &classificationService{primary: primary, fallback: fallback}
}

func (s *classificationService) Classify(ctx context.Context, text string) (ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return ClassificationResult{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if s.primary != nil {
		c, err := s.primary.TryClassify(ctx, text)
		if err == nil {
			return ClassificationResult{Category: c.Category, Confidence: c.Confidence, Source: SourceModel}, nil
		}
		log.Warnf("[ClassificationService] model classification failed, using keywords: %v", err)
	}
	c := s.fallback.Classify(text)
	return ClassificationResult{Category: c.Category, Confidence: c.Confidence, Source: SourceKeyword}, nil
}

func (s *classificationService) AssessUrgency(text string) string {
	return nlp.AssessUrgency(text)
}

func (s *classificationService) ExtractEntities(ctx context.Context, text string) nlp.Entities {
	if s.primary != nil {
		e, err := s.primary.TryExtractEntities(ctx, text)
		if err == nil {
			return e
		}
		log.Warnf("[ClassificationService] model entity extraction failed, using heuristics: %v", err)
	}
	return nlp.ExtractEntities(text)
}

const classifyPrompt = `You triage civic issue reports. Reply with a JSON object only:
{"category": one of "infrastructure","utility","safety","environment","health","other", "confidence": number between 0 and 1}`

const entitiesPrompt = `Extract named entities from the civic issue report. Reply with a JSON object only:
{"organisations": [string], "locations": [string], "persons": [string]}`

// LLMClassifier asks a chat model for a category and entities.
type LLMClassifier struct {
	client llm.Client
}

// NewLLMClassifier creates an LLMClassifier.
func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

func (c *LLMClassifier) ask(ctx context.Context, system, text string, out any) error {
	reply, err := c.client.Chat(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}, &llm.GenerationParams{JSONMode: true})
	if err != nil {
		return err
	}
	return llm.UnmarshalJSON(reply, out)
}

// TryClassify implements PrimaryClassifier. Unknown categories and out-of-range confidences are errors.
func (c *LLMClassifier) TryClassify(ctx context.Context, text string) (nlp.Classification, error) {
	var out nlp.Classification
	if err := c.ask(ctx, classifyPrompt, text, &out); err != nil {
		return nlp.Classification{}, err
	}
	out.Category = strings.ToLower(strings.TrimSpace(out.Category))
	if !nlp.ValidCategory(out.Category) {
		return nlp.Classification{}, fmt.Errorf("model returned unknown category %q", out.Category)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nlp.Classification{}, errors.New("model returned confidence outside [0,1]")
	}
	return out, nil
}

// TryExtractEntities implements PrimaryClassifier.
func (c *LLMClassifier) TryExtractEntities(ctx context.Context, text string) (nlp.Entities, error) {
	var out nlp.Entities
	if err := c.ask(ctx, entitiesPrompt, text, &out); err != nil {
		return nlp.Entities{}, err
	}
	if out.Organisations == nil {
		out.Organisations = []string{}
	}
	if out.Locations == nil {
		out.Locations = []string{}
	}
	if out.Persons == nil {
		out.Persons = []string{}
	}
	return out, nil
}
