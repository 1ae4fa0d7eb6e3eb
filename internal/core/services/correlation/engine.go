package correlation

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/cache"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/exploit"
)

// Signal strengths contributed by a single threat object.
const (
	directReferenceFactor    = 0.9
	descriptionMentionFactor = 0.7
	exploitLabelFactor       = 0.8
	activeLabelFactor        = 1.0
	perFactorBoost           = 0.1
)

// Options tunes the correlation score.
type Options struct {
	MinScore                 float64
	ExploitAvailableWeight   float64
	ActiveExploitationWeight float64
}

// DefaultOptions returns the stock thresholds and weights.
func DefaultOptions() Options {
	return Options{
		MinScore:                 0.5,
		ExploitAvailableWeight:   0.3,
		ActiveExploitationWeight: 0.5,
	}
}

// Engine correlates vulnerabilities with STIX threat objects.
type Engine struct {
	opts      Options
	cache     *cache.Cache[domain.ThreatCorrelation]
	predictor *exploit.Predictor
	logger    *zap.Logger
}

// NewEngine creates a correlation engine backed by c. predictor may be nil,
// in which case correlations carry no exploit likelihood.
func NewEngine(opts Options, c *cache.Cache[domain.ThreatCorrelation], predictor *exploit.Predictor, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:      opts,
		cache:     c,
		predictor: predictor,
		logger:    logger.Named("correlation"),
	}
}

// Correlate returns one correlation per CVE whose score reaches the configured
// minimum. CVEs below the threshold are dropped silently.
func (e *Engine) Correlate(vulns []domain.CVE, threats []domain.ThreatObject) []domain.ThreatCorrelation {
	results := make([]domain.ThreatCorrelation, 0)
	if len(vulns) == 0 || len(threats) == 0 {
		return results
	}

	for _, cve := range vulns {
		if cached, ok := e.cache.Get(cve.ID); ok {
			results = append(results, cached)
			continue
		}

		corr := e.correlate(cve, threats)
		if corr.CorrelationScore < e.opts.MinScore {
			e.logger.Debug("Correlation below threshold",
				zap.String("cve_id", cve.ID),
				zap.Float64("score", corr.CorrelationScore),
				zap.Float64("min_score", e.opts.MinScore))
			continue
		}

		e.cache.Set(cve.ID, corr)
		results = append(results, corr)
	}

	return results
}

// correlate scores one CVE against all threats.
func (e *Engine) correlate(cve domain.CVE, threats []domain.ThreatObject) domain.ThreatCorrelation {
	corr := domain.ThreatCorrelation{
		CVEID:            cve.ID,
		ThreatIndicators: []string{},
	}

	var factors []float64
	exploitLabelled := false

	for _, threat := range threats {
		referenced := threat.ReferencesCVE(cve.ID)
		mentioned := threat.MentionsCVE(cve.ID)
		if !referenced && !mentioned {
			continue
		}

		if referenced {
			factors = append(factors, directReferenceFactor)
		}
		if mentioned {
			factors = append(factors, descriptionMentionFactor)
		}
		corr.ThreatIndicators = append(corr.ThreatIndicators, threat.ID)

		if threat.HasLabel(domain.LabelExploit) {
			exploitLabelled = true
			factors = append(factors, exploitLabelFactor)
		}
		if threat.HasLabel(domain.LabelActiveExploitation) {
			corr.ActiveExploitation = true
			factors = append(factors, activeLabelFactor)
		}

		switch domain.ParseThreatObjectType(string(threat.Type)) {
		case domain.ThreatActorObject:
			corr.ThreatActors = appendUnique(corr.ThreatActors, threat.Name)
		case domain.ThreatCampaignObject:
			corr.Campaigns = appendUnique(corr.Campaigns, threat.Name)
		}

		for _, ref := range threat.ExternalReferences {
			if strings.EqualFold(ref.SourceName, domain.SourceMitreAttack) && ref.ExternalID != "" {
				corr.AttackTechniques = appendUnique(corr.AttackTechniques, ref.ExternalID)
			}
		}
	}

	corr.ExploitAvailable = exploitLabelled
	corr.CorrelationScore = e.score(factors, exploitLabelled, corr.ActiveExploitation)

	if e.predictor != nil {
		corr.ExploitLikelihood = e.predictor.Predict(cve, threats)
	}

	return corr
}

// score blends the collected factors. Multi-signal correlations are boosted,
// then exploit and active exploitation evidence add fixed weights.
func (e *Engine) score(factors []float64, exploitLabelled, active bool) float64 {
	if len(factors) == 0 {
		return 0.0
	}

	var sum float64
	for _, f := range factors {
		sum += f
	}
	score := sum / float64(len(factors))

	if len(factors) > 1 {
		score *= 1 + perFactorBoost*float64(len(factors))
	}
	score = math.Min(score, 1.0)

	if exploitLabelled {
		score = math.Min(score+e.opts.ExploitAvailableWeight, 1.0)
	}
	if active {
		score = math.Min(score+e.opts.ActiveExploitationWeight, 1.0)
	}

	return math.Max(score, 0.0)
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
