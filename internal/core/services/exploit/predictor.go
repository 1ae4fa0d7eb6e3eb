package exploit

import (
	"math"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

const (
	exploitAvailableFactor   = 0.8
	activeExploitationFactor = 1.0
	unknownAgeFactor         = 0.5
	fullAgeDays              = 365.0
	multiSignalBoost         = 1.1
)

// Predictor estimates how likely a CVE is to be exploited.
type Predictor struct {
	clock ports.Clock
}

// NewPredictor creates a predictor. A nil clock falls back to the system clock.
func NewPredictor(clock ports.Clock) *Predictor {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Predictor{clock: clock}
}

// Predict returns a probability in [0,1] built from independent signals:
// EPSS, normalized CVSS, exploit availability, active exploitation evidence
// and vulnerability age.
func (p *Predictor) Predict(cve domain.CVE, threats []domain.ThreatObject) float64 {
	var factors []float64

	if cve.EPSSScore > 0 {
		factors = append(factors, cve.EPSSScore)
	}
	if cve.CVSSScore > 0 {
		factors = append(factors, cve.CVSSScore/10.0)
	}
	if cve.ExploitAvailable {
		factors = append(factors, exploitAvailableFactor)
	}
	if activelyExploited(cve.ID, threats) {
		factors = append(factors, activeExploitationFactor)
	}
	factors = append(factors, p.ageFactor(cve.PublishedDate))

	if len(factors) == 0 {
		return 0.0
	}

	var sum float64
	for _, f := range factors {
		sum += f
	}
	likelihood := sum / float64(len(factors))

	if len(factors) > 2 {
		likelihood *= multiSignalBoost
	}

	return math.Max(0, math.Min(likelihood, 1.0))
}

// ageFactor scales linearly with days since publication, reaching 1.0 after a year.
// Missing or unparsable dates are neutral.
func (p *Predictor) ageFactor(published string) float64 {
	t, ok := domain.ParseTimestamp(published)
	if !ok {
		return unknownAgeFactor
	}
	days := math.Floor(p.clock.Now().Sub(t).Hours() / 24)
	if days <= 0 {
		return 0
	}
	return math.Min(days/fullAgeDays, 1.0)
}

func activelyExploited(cveID string, threats []domain.ThreatObject) bool {
	for _, t := range threats {
		if !t.ReferencesCVE(cveID) && !t.MentionsCVE(cveID) {
			continue
		}
		if t.HasLabel(domain.LabelActiveExploitation) {
			return true
		}
	}
	return false
}
