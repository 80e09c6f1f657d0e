// Package aggregate merges provider results into the final response.
// Sections follow a fixed presentation order so answers read the same way
// regardless of which provider finished first, and failed capabilities stay
// visible as degraded sections instead of silently disappearing.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"finassist/internal/common/logger"
	"finassist/internal/models"
)

// dedupePrefixLen is how much normalized content two sections must share
// before the later one is considered a duplicate.
const dedupePrefixLen = 50

type Aggregator struct {
	logger logger.Logger
}

func New(log logger.Logger) *Aggregator {
	return &Aggregator{
		logger: log.With(map[string]interface{}{
			"component": "response-aggregator",
		}),
	}
}

// Merge folds one result per requested capability into a Response.
// Status reflects the mix: all successes make Complete, any success makes
// at least Partial, zero successes make Failed.
func (a *Aggregator) Merge(query models.Query, results []models.ProviderResult) *models.Response {
	ordered := make([]models.ProviderResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Capability.MergePriority() < ordered[j].Capability.MergePriority()
	})

	var (
		sections  []models.Section
		failures  []string
		seen      = make(map[string]bool)
		succeeded int
	)

	for _, r := range ordered {
		if r.Status == models.ResultSuccess {
			content := ""
			var sources []models.Source
			if r.Payload != nil {
				content = r.Payload.Content
				sources = r.Payload.Sources
			}

			key := dedupeKey(content)
			if key != "" && seen[key] {
				a.logger.Debug("duplicate section dropped", map[string]interface{}{
					"queryId":    query.ID,
					"capability": string(r.Capability),
				})
				succeeded++
				continue
			}
			seen[key] = true

			sections = append(sections, models.Section{
				Capability: r.Capability,
				Content:    content,
				Sources:    sources,
				Provenance: r.Provenance,
			})
			succeeded++
			continue
		}

		sections = append(sections, models.Section{
			Capability:  r.Capability,
			Provenance:  models.ProvenanceDegraded,
			FailureKind: r.FailureKind,
		})
		failures = append(failures, fmt.Sprintf("%s: %s", r.Capability, r.FailureKind))
	}

	status := models.StatusFailed
	switch {
	case len(results) > 0 && succeeded == len(results):
		status = models.StatusComplete
	case succeeded > 0:
		status = models.StatusPartial
	}

	resp := &models.Response{
		RequestID: query.ID,
		Status:    status,
		Sections:  sections,
		Language:  query.Language,
	}
	if len(failures) > 0 {
		resp.ErrorSummary = strings.Join(failures, "; ")
	}

	a.logger.Info("response aggregated", map[string]interface{}{
		"queryId":   query.ID,
		"status":    string(status),
		"sections":  len(sections),
		"succeeded": succeeded,
		"failed":    len(failures),
	})

	return resp
}

// dedupeKey normalizes content down to its identifying prefix.
func dedupeKey(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	if len(normalized) > dedupePrefixLen {
		normalized = normalized[:dedupePrefixLen]
	}
	return normalized
}
