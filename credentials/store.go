package credentials

import (
	"io"
	"strings"
	"sync"

	"github.com/fahmaliyi/wifivault/vault"
	"github.com/sirupsen/logrus"
)

// Store owns the validated centers of one vault file. Lookups are in-memory
// and safe to call while Load runs on another goroutine.
type Store struct {
	path string
	log  logrus.FieldLogger

	mu       sync.RWMutex
	centers  []CenterCredentials
	metadata map[string]any
	skipped  int
	describe string
}

func NewStore(path string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = discardLogger()
	}
	log = log.WithField("vault", path)
	log.Debug("credentials store initialised")
	return &Store{path: path, log: log, metadata: map[string]any{}}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Load decrypts the vault and replaces the current centers. On error the
// previous contents are kept.
func (s *Store) Load(password []byte) error {
	s.log.Info("loading credentials from vault")

	payload, err := vault.NewVault(s.path, nil).Open(password)
	if err != nil {
		s.log.WithError(err).Error("vault load failed")
		return err
	}
	s.log.WithField("entries", len(payload.Centers)).Info("vault decrypted")

	centers, skipped, err := ParseCenters(payload.Centers, s.log)
	if err != nil {
		s.log.WithError(err).Error("vault load failed")
		return err
	}

	s.mu.Lock()
	s.centers = centers
	s.metadata = payload.Metadata
	s.skipped = skipped
	s.describe = payload.Describe()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"count": len(centers), "skipped": skipped}).Info("credentials loaded")
	return nil
}

// All returns a copy of every center in vault order.
func (s *Store) All() []CenterCredentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log.WithField("count", len(s.centers)).Debug("returning all centers")
	out := make([]CenterCredentials, len(s.centers))
	copy(out, s.centers)
	return out
}

// ByCode finds a center by exact, case-insensitive code.
func (s *Store) ByCode(code string) *CenterCredentials {
	return s.find("code", code, func(c CenterCredentials) string { return c.CenterCode })
}

// ByName finds a center by exact, case-insensitive name.
func (s *Store) ByName(name string) *CenterCredentials {
	return s.find("name", name, func(c CenterCredentials) string { return c.CenterName })
}

func (s *Store) find(kind, value string, key func(CenterCredentials) string) *CenterCredentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.centers {
		if strings.EqualFold(key(c), value) {
			s.log.WithField(kind, value).Debug("center found")
			c := c
			return &c
		}
	}
	s.log.WithField(kind, value).Debug("center not found")
	return nil
}

// Search returns the centers whose code or name contains query, ignoring
// case. An empty query returns everything.
func (s *Store) Search(query string) []CenterCredentials {
	if query == "" {
		return s.All()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []CenterCredentials
	for _, c := range s.centers {
		if c.Matches(query) {
			results = append(results, c)
		}
	}
	s.log.WithFields(logrus.Fields{"query": query, "count": len(results)}).Debug("search finished")
	return results
}

// Metadata returns a shallow copy of the vault metadata.
func (s *Store) Metadata() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

// Describe returns the status line of the last successful load.
func (s *Store) Describe() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.describe
}

// Skipped is the number of entries dropped during the last successful load.
func (s *Store) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

func (s *Store) Path() string { return s.path }
