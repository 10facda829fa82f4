// Package pipeline orchestrates one end-to-end scrape run: fetch the
// bulletin pages, parse listings into notices, deduplicate against the
// persisted dataset, summarize what is new, and atomically rewrite the
// artifact.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
	"github.com/transparencia-pba/boletin-crawler/internal/dedup"
	"github.com/transparencia-pba/boletin-crawler/internal/fetcher"
	"github.com/transparencia-pba/boletin-crawler/internal/metrics"
	"github.com/transparencia-pba/boletin-crawler/internal/parser"
	"github.com/transparencia-pba/boletin-crawler/internal/summarizer"
)

// Store abstracts the artifact so tests can substitute an in-memory or
// failing implementation.
type Store interface {
	Load() (boletin.Dataset, error)
	Save(boletin.Dataset) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Config holds the run-level knobs the orchestrator needs.
type Config struct {
	// HomeURL is the bulletin site root.
	HomeURL string
	// MaxNotices caps how many detail pages one run fetches.
	MaxNotices int
}

// Pipeline wires the stages together. Construct with New; zero value
// is not usable.
type Pipeline struct {
	cfg        Config
	fetcher    fetcher.Fetcher
	parser     *parser.Parser
	summarizer summarizer.Summarizer
	store      Store
	clock      Clock
	metrics    *metrics.Metrics
	logger     *zap.Logger

	state State
}

// New constructs a Pipeline. Metrics may be nil when no registry is
// wired (tests); everything else is required.
func New(
	cfg Config,
	f fetcher.Fetcher,
	p *parser.Parser,
	s summarizer.Summarizer,
	store Store,
	clock Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		fetcher:    f,
		parser:     p,
		summarizer: s,
		store:      store,
		clock:      clock,
		metrics:    m,
		logger:     logger,
		state:      StateIdle,
	}
}

// State reports the phase the current (or last) run is in.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes one scheduled pipeline pass. On error the previous
// artifact is untouched and the error carries the failing stage's
// taxonomy type; the caller surfaces it to the scheduler as a non-zero
// exit.
func (p *Pipeline) Run(ctx context.Context) (boletin.RunCounters, error) {
	started := p.clock.Now()
	counters, err := p.run(ctx)
	if p.metrics != nil {
		p.metrics.RunDuration.Observe(p.clock.Now().Sub(started).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
		p.metrics.ObserveCounters(counters)
	}
	return counters, err
}

func (p *Pipeline) run(ctx context.Context) (boletin.RunCounters, error) {
	var counters boletin.RunCounters

	prior, err := p.store.Load()
	if err != nil {
		p.fail("load artifact", err)
		return counters, err
	}

	p.transition(StateFetching)
	info, candidates, err := p.discover(ctx, &counters)
	if err != nil {
		p.fail("discover listings", err)
		return counters, err
	}

	p.transition(StateParsing)
	parsed := p.parseDetails(ctx, candidates, &counters)

	p.transition(StateDeduplicating)
	part := dedup.Partition(parsed, prior)
	counters.NoticesNew = len(part.New)
	counters.NoticesKnown = part.Known
	p.logger.Info("deduplicated listings",
		zap.Int("new", len(part.New)),
		zap.Int("known", part.Known),
		zap.Int("same_run_duplicates", part.Duplicates),
	)

	p.transition(StateSummarizing)
	fresh := p.summarizeNew(ctx, part.New, info, &counters)
	p.summarizePending(ctx, &prior, &counters)

	p.transition(StateWriting)
	updated := boletin.Dataset{
		Bulletin:    info,
		GeneratedAt: p.clock.Now(),
		Notices:     append(fresh, prior.Notices...),
	}
	if err := p.store.Save(updated); err != nil {
		p.fail("save artifact", err)
		return counters, err
	}

	if p.metrics != nil {
		p.metrics.DatasetSize.Set(float64(len(updated.Notices)))
		p.metrics.PendingSummaries.Set(float64(len(updated.Pending())))
	}

	p.transition(StateIdle)
	p.logger.Info("run complete",
		zap.String("bulletin", info.Number),
		zap.Int("dataset_size", len(updated.Notices)),
		zap.Int("summaries_written", counters.SummariesWritten),
		zap.Int("summaries_deferred", counters.SummariesDeferred),
	)
	return counters, nil
}

// discover fetches the bulletin home page and its section listings,
// returning the bulletin identity and the norm candidates to visit.
func (p *Pipeline) discover(ctx context.Context, counters *boletin.RunCounters) (boletin.BulletinInfo, []parser.Candidate, error) {
	home, err := p.fetcher.Fetch(ctx, p.cfg.HomeURL)
	if err != nil {
		return boletin.BulletinInfo{}, nil, err
	}
	counters.PagesFetched++

	info := parser.BulletinInfo(home.Body)
	if info.Number == "" {
		return boletin.BulletinInfo{}, nil, &boletin.ParseError{
			URL:    p.cfg.HomeURL,
			Reason: "bulletin number not found on home page",
		}
	}
	if info.DisplayDate == "" {
		info.DisplayDate = p.clock.Now().Format("02/01/2006")
	}

	sections := sectionURLs(p.cfg.HomeURL, info.Number)
	var candidates []parser.Candidate
	for i, sectionURL := range sections {
		page, err := p.fetcher.Fetch(ctx, sectionURL)
		if err != nil {
			// The previous bulletin's section is a best-effort
			// supplement; only the current one is load-bearing.
			if i > 0 {
				p.logger.Warn("supplemental section fetch failed",
					zap.String("url", sectionURL), zap.Error(err))
				continue
			}
			return boletin.BulletinInfo{}, nil, err
		}
		counters.PagesFetched++

		cands, err := p.parser.Candidates(sectionURL, page.Body)
		if err != nil {
			if i > 0 {
				p.logger.Warn("supplemental section unparseable",
					zap.String("url", sectionURL), zap.Error(err))
				continue
			}
			return boletin.BulletinInfo{}, nil, err
		}
		candidates = append(candidates, cands...)
	}

	if len(candidates) > p.cfg.MaxNotices {
		candidates = candidates[:p.cfg.MaxNotices]
	}
	return info, candidates, nil
}

// parseDetails visits each candidate's detail page. Failures here are
// per-record: the entry is skipped and logged, never fatal to the run.
func (p *Pipeline) parseDetails(ctx context.Context, candidates []parser.Candidate, counters *boletin.RunCounters) []boletin.Notice {
	var parsed []boletin.Notice
	for _, cand := range candidates {
		page, err := p.fetcher.Fetch(ctx, cand.URL)
		if err != nil {
			counters.RecordsSkipped++
			p.logger.Warn("skipping notice: detail fetch failed",
				zap.String("reference_id", cand.ReferenceID), zap.Error(err))
			continue
		}
		counters.PagesFetched++

		n, err := p.parser.Detail(cand, page.Body)
		if err != nil {
			counters.RecordsSkipped++
			p.logger.Warn("skipping notice: detail unparseable",
				zap.String("reference_id", cand.ReferenceID), zap.Error(err))
			continue
		}
		counters.RecordsParsed++
		parsed = append(parsed, n)
	}
	return parsed
}

// summarizeNew stamps and summarizes this run's new notices. A
// summarization failure keeps the notice, summaryless, for a later
// run.
func (p *Pipeline) summarizeNew(ctx context.Context, fresh []boletin.Notice, info boletin.BulletinInfo, counters *boletin.RunCounters) []boletin.Notice {
	published := publishedDate(info.DisplayDate, p.clock.Now())
	for i := range fresh {
		fresh[i].FirstSeen = p.clock.Now()
		fresh[i].PublishedDate = published
		p.attachSummary(ctx, &fresh[i], counters)
	}
	return fresh
}

// summarizePending re-attempts notices persisted without a summary by
// an earlier run.
func (p *Pipeline) summarizePending(ctx context.Context, ds *boletin.Dataset, counters *boletin.RunCounters) {
	for _, i := range ds.Pending() {
		p.attachSummary(ctx, &ds.Notices[i], counters)
	}
}

func (p *Pipeline) attachSummary(ctx context.Context, n *boletin.Notice, counters *boletin.RunCounters) {
	sum, err := p.summarizer.Summarize(ctx, *n)
	if err != nil {
		counters.SummariesDeferred++
		p.logger.Warn("summarization deferred",
			zap.String("reference_id", n.ReferenceID), zap.Error(err))
		return
	}
	now := p.clock.Now()
	n.ShortSummary = sum.Short
	n.LongSummary = sum.Long
	n.SummarizedAt = &now
	counters.SummariesWritten++
}

func (p *Pipeline) transition(next State) {
	p.logger.Debug("state transition",
		zap.String("from", string(p.state)),
		zap.String("to", string(next)),
	)
	p.state = next
}

func (p *Pipeline) fail(stage string, err error) {
	p.state = StateFailed
	p.logger.Error("run failed", zap.String("stage", stage), zap.Error(err))
}

// sectionURLs returns the current bulletin's section listing plus the
// previous edition's as a supplement, mirroring how the site keeps the
// last edition reachable.
func sectionURLs(homeURL, number string) []string {
	base := strings.TrimRight(homeURL, "/")
	urls := []string{fmt.Sprintf("%s/secciones/%s/ver", base, number)}
	if n, err := strconv.Atoi(number); err == nil && n > 1 {
		urls = append(urls, fmt.Sprintf("%s/secciones/%d/ver", base, n-1))
	}
	return urls
}

// publishedDate converts the bulletin's dd/mm/yyyy display date to ISO,
// falling back to the run date when it cannot be parsed.
func publishedDate(display string, now time.Time) string {
	if t, err := time.Parse("2/1/2006", display); err == nil {
		return t.Format("2006-01-02")
	}
	return now.Format("2006-01-02")
}
