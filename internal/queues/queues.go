// Package queues partitions selected work items into the three downstream
// execution queues by rule.
package queues

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/abacushq/abacus/internal/types"
)

// Category is a normalized fix category derived from tracker labels.
// Normalization lowercases and collapses spaces, underscores, and slashes to
// hyphens, so "CI/CD Pipeline" and "ci_cd_pipeline" name the same category.
type Category string

// Builtin fix categories
const (
	CategoryFormatting             Category = "formatting"
	CategoryDeadCodeRemoval        Category = "dead-code-removal"
	CategorySimpleRefactor         Category = "simple-refactor"
	CategoryDocumentation          Category = "documentation"
	CategoryLintOrTypeFix          Category = "lint-or-type-fix"
	CategoryCICDPipeline           Category = "ci-cd-pipeline"
	CategoryTestInfrastructure     Category = "test-infrastructure"
	CategoryDeploymentAutomation   Category = "deployment-automation"
	CategoryBuildOptimization      Category = "build-optimization"
	CategoryCodeQualityReview      Category = "code-quality-review"
	CategoryTechDebtAssessment     Category = "technical-debt-assessment"
	CategorySecurityAudit          Category = "security-audit"
	CategoryArchitectureValidation Category = "architecture-validation"
)

// builtinRules is the fixed category-to-queue table. Mechanical, low-risk
// changes go to the executor; pipeline and infrastructure work to the
// guardian; review and audit work to the auditor.
var builtinRules = map[Category]types.Queue{
	CategoryFormatting:             types.QueueExecutor,
	CategoryDeadCodeRemoval:        types.QueueExecutor,
	CategorySimpleRefactor:         types.QueueExecutor,
	CategoryDocumentation:          types.QueueExecutor,
	CategoryLintOrTypeFix:          types.QueueExecutor,
	CategoryCICDPipeline:           types.QueueGuardian,
	CategoryTestInfrastructure:     types.QueueGuardian,
	CategoryDeploymentAutomation:   types.QueueGuardian,
	CategoryBuildOptimization:      types.QueueGuardian,
	CategoryCodeQualityReview:      types.QueueAuditor,
	CategoryTechDebtAssessment:     types.QueueAuditor,
	CategorySecurityAudit:          types.QueueAuditor,
	CategoryArchitectureValidation: types.QueueAuditor,
}

// Normalize converts a raw label or category string to its canonical
// Category form.
func Normalize(raw string) Category {
	lower := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range lower {
		switch r {
		case ' ', '_', '/', '-':
			if b.Len() > 0 {
				pendingHyphen = true
			}
		default:
			if pendingHyphen {
				b.WriteByte('-')
				pendingHyphen = false
			}
			b.WriteRune(r)
		}
	}
	return Category(b.String())
}

// Classifier maps selected items to execution queues via the rule table,
// with the item's raw type as the fallback for unmatched categories.
type Classifier struct {
	rules map[Category]types.Queue
}

// NewClassifier creates a Classifier with the builtin rule table
func NewClassifier() *Classifier {
	rules := make(map[Category]types.Queue, len(builtinRules))
	for cat, q := range builtinRules {
		rules[cat] = q
	}
	return &Classifier{rules: rules}
}

// NewClassifierWithRoutes creates a Classifier extended with extra category
// routes, typically loaded from routing.toml. Extra routes may only add
// categories; remapping a builtin category is an error.
func NewClassifierWithRoutes(extra map[Category]types.Queue) (*Classifier, error) {
	c := NewClassifier()
	for cat, q := range extra {
		if _, builtin := builtinRules[cat]; builtin {
			return nil, fmt.Errorf("cannot remap builtin category %q", cat)
		}
		if !q.IsValid() {
			return nil, fmt.Errorf("invalid queue %q for category %q", q, cat)
		}
		c.rules[cat] = q
	}
	return c, nil
}

// Classify maps one item to exactly one queue. The normalized fix category
// is looked up in the rule table; items with no category or an unmatched one
// fall back on type: debt types go to the auditor, features to the executor.
func (c *Classifier) Classify(item types.BacklogItem) types.Queue {
	if item.FixCategory != "" {
		if q, ok := c.rules[Normalize(item.FixCategory)]; ok {
			return q
		}
	}
	if item.Type.IsDebt() {
		return types.QueueAuditor
	}
	return types.QueueExecutor
}

// Partition classifies every selected item, preserving selection order
// within each queue. The three lists are disjoint: each item lands in
// exactly one.
func (c *Classifier) Partition(items []types.ScoredItem) types.WorkQueues {
	queues := types.WorkQueues{
		Executor: []string{},
		Guardian: []string{},
		Auditor:  []string{},
	}
	for _, it := range items {
		switch c.Classify(it.Item) {
		case types.QueueGuardian:
			queues.Guardian = append(queues.Guardian, it.Item.ID)
		case types.QueueAuditor:
			queues.Auditor = append(queues.Auditor, it.Item.ID)
		default:
			queues.Executor = append(queues.Executor, it.Item.ID)
		}
	}
	return queues
}

// routesFile is the TOML shape of a routing extension file
type routesFile struct {
	Routes map[string]string `toml:"routes"`
}

// LoadRoutes reads extra category routes from routing.toml in dir, mapping
// normalized categories to queue names. A missing file is not an error.
func LoadRoutes(dir string) (map[Category]types.Queue, error) {
	path := filepath.Join(dir, "routing.toml")
	data, err := os.ReadFile(path) // #nosec G304 -- path is constructed from the workspace dir
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read routing.toml: %w", err)
	}

	var rf routesFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse routing.toml: %w", err)
	}

	routes := make(map[Category]types.Queue, len(rf.Routes))
	for raw, queueName := range rf.Routes {
		q := types.Queue(queueName)
		if !q.IsValid() {
			return nil, fmt.Errorf("routing.toml: unknown queue %q for category %q", queueName, raw)
		}
		routes[Normalize(raw)] = q
	}
	return routes, nil
}
