package main

// Project mining rewards from a statistics provider's published baselines and, when a database is
// configured, store the projections, creating schema as necessary.
// CoinRewardData.hcl controls the configuration for this program. Important settings such as the
// provider, the configured miners and database connectivity are stored there.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/hako/durafmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/remeh/sizedwaitgroup"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli"

	"CoinRewardData/config"
	"CoinRewardData/logger"
	"CoinRewardData/recorder"
	"CoinRewardData/reward"
)

type metadata struct {
	config    *config.Config
	requestor *reward.Requestor
	registry  *prometheus.Registry
	log       *logger.Entry
	w         io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	app := cli.NewApp()
	app.Name = "CoinRewardData"
	app.Usage = "project mining rewards from provider statistics"
	app.Version = version

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "",
			Usage: " configuration `FILE` [" + config.DefaultFileName + "]",
		},
		cli.StringFlag{
			Name:  "metrics",
			Value: "",
			Usage: " write counters in text exposition format to `FILE` on exit",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "project",
			Usage:     "project the rewards of one hashrate",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "coin, C",
					Value: "",
					Usage: "*coin `TICKER`, e.g. BTC",
				},
				cli.StringFlag{
					Name:  "hashrate, r",
					Value: "",
					Usage: "*reported hashrate in H/s `NUMBER`",
				},
				cli.StringFlag{
					Name:  "miner, m",
					Value: "",
					Usage: " miner `NAME` stored with the projection",
				},
			},
			Action: runProject,
		},
		{
			Name:   "all",
			Usage:  "project the rewards of every configured miner",
			Action: runAll,
		},
		{
			Name:   "coins",
			Usage:  "list the coins the provider supports",
			Action: runCoins,
		},
	}

	app.Before = func(c *cli.Context) error {
		cfg, err := config.Load(c.GlobalString("config"))
		if err != nil {
			return err
		}

		log := logger.GetLogger()
		if err := log.Configure(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, cfg.LogMaxAge); err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		requestor, err := newRequestor(cfg, log, registry)
		if err != nil {
			return err
		}

		c.App.Metadata["config"] = &metadata{
			config:    cfg,
			requestor: requestor,
			registry:  registry,
			log:       log.WithComponent("main"),
			w:         c.App.Writer,
		}
		return nil
	}

	app.After = func(c *cli.Context) error {
		m, ok := c.App.Metadata["config"].(*metadata)
		if !ok {
			return nil
		}
		if file := c.GlobalString("metrics"); file != "" {
			if err := prometheus.WriteToTextfile(file, m.registry); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

// Build the requestor of the configured provider.
// @param cfg - The loaded configuration
// @param log - The configured logger
// @param reg - Registry for the reward counters
func newRequestor(cfg *config.Config, log *logger.Log, reg prometheus.Registerer) (*reward.Requestor, error) {
	providerType, err := reward.ParseProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}
	metrics, err := reward.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return reward.New(providerType,
		reward.WithEndpointsUpdate(*cfg.EndpointsUpdate),
		reward.WithRetries(cfg.Retries),
		reward.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.HTTPTimeout) * time.Second}),
		reward.WithBaseURL(cfg.BaseURL),
		reward.WithRefreshDedupe(cfg.DedupeRefresh),
		reward.WithMetrics(metrics),
		reward.WithLogger(log),
	)
}

// ====================================
// Commands
// ====================================

func runProject(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	coin, err := reward.ParseCoinType(c.String("coin"))
	if err != nil {
		return err
	}
	hashrate, err := decimal.NewFromString(c.String("hashrate"))
	if err != nil {
		return fmt.Errorf("invalid hashrate %q: %w", c.String("hashrate"), err)
	}

	ctx, stop := signalContext()
	defer stop()

	miner := config.Miner{Coin: coin.String(), Name: c.String("miner")}
	res := project(ctx, m, miner, coin, hashrate)
	if res.err != nil {
		sendProjectionAlert(m.config, miner.Name, coin, res.err)
		return res.err
	}
	if err := store(m, []result{res}); err != nil {
		return err
	}
	return printJSON(m.w, res.output())
}

func runAll(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	if len(m.config.Miners) == 0 {
		return fmt.Errorf("no miners configured")
	}

	ctx, stop := signalContext()
	defer stop()

	m.log.WithFields(logger.Fields{"miners": len(m.config.Miners)}).Info("Connecting to provider for projections...")

	results := make([]result, len(m.config.Miners))
	swg := sizedwaitgroup.New(m.config.Workers)
	for i, miner := range m.config.Miners {
		swg.Add()
		go func(i int, miner config.Miner) {
			defer swg.Done()
			coin, err := reward.ParseCoinType(miner.Coin)
			if err != nil {
				results[i] = result{miner: miner, err: err}
				return
			}
			hashrate, err := miner.HashrateValue()
			if err != nil {
				results[i] = result{miner: miner, coin: coin, err: err}
				return
			}
			results[i] = project(ctx, m, miner, coin, hashrate)
		}(i, miner)
	}
	swg.Wait()

	// Alerts go out once per coin and failure kind, not once per miner.
	var ok []result
	alerted := map[string]bool{}
	outputs := make([]projectionOutput, 0, len(results))
	failed := 0
	for _, res := range results {
		outputs = append(outputs, res.output())
		if res.err != nil {
			failed++
			key := res.coin.String() + "/" + reward.KindOf(res.err).String()
			if !alerted[key] {
				alerted[key] = sendProjectionAlert(m.config, res.miner.Name, res.coin, res.err)
			}
			continue
		}
		ok = append(ok, res)
	}

	if err := store(m, ok); err != nil {
		return err
	}
	if err := printJSON(m.w, outputs); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d projections failed", failed, len(results))
	}
	m.log.Info("Operations complete.")
	return nil
}

func runCoins(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	coins := m.requestor.Coins()
	names := make([]string, 0, len(coins))
	for _, coin := range coins {
		names = append(names, coin.String())
	}
	sort.Strings(names)

	out := struct {
		Provider reward.ProviderType `json:"provider"`
		Coins    []string            `json:"coins"`
	}{
		Provider: m.requestor.Type(),
		Coins:    names,
	}
	return printJSON(m.w, out)
}

// ====================================
// Projection
// ====================================

type result struct {
	miner      config.Miner
	coin       reward.CoinType
	projection reward.Projection
	baseline   reward.Baseline
	instant    time.Time
	err        error
}

type projectionOutput struct {
	Miner            string          `json:"miner,omitempty"`
	Coin             string          `json:"coin"`
	ReportedHashrate decimal.Decimal `json:"reported_hashrate"`
	RewardPerHour    decimal.Decimal `json:"reward_per_hour"`
	RewardPerDay     decimal.Decimal `json:"reward_per_day"`
	RewardPerWeek    decimal.Decimal `json:"reward_per_week"`
	RewardPerMonth   decimal.Decimal `json:"reward_per_month"`
	RewardPerYear    decimal.Decimal `json:"reward_per_year"`
	LastUpdated      *time.Time      `json:"last_updated,omitempty"`
	NextRefreshIn    string          `json:"next_refresh_in,omitempty"`
	Error            string          `json:"error,omitempty"`
}

func (r result) output() projectionOutput {
	out := projectionOutput{
		Miner: r.miner.Name,
		Coin:  r.coin.String(),
	}
	if r.coin == "" {
		out.Coin = r.miner.Coin
	}
	if r.err != nil {
		out.Error = r.err.Error()
		return out
	}
	p := r.projection
	out.ReportedHashrate = p.ReportedHashrate
	out.RewardPerHour = p.RewardPerHour
	out.RewardPerDay = p.RewardPerDay
	out.RewardPerWeek = p.RewardPerWeek
	out.RewardPerMonth = p.RewardPerMonth
	out.RewardPerYear = p.RewardPerYear
	if !r.baseline.LastUpdated.IsZero() {
		updated := r.baseline.LastUpdated.UTC()
		out.LastUpdated = &updated
	}
	out.NextRefreshIn = untilRefresh(r.baseline.NextRefreshAt, r.instant)
	return out
}

// untilRefresh renders the time left before the baseline goes stale.
func untilRefresh(next, now time.Time) string {
	left := next.Sub(now)
	if left <= 0 {
		return "due"
	}
	return durafmt.Parse(left.Round(time.Second)).LimitFirstN(2).String()
}

// Project one miner's rewards and log the outcome.
// @param ctx - Cancelled on interrupt
// @param m - The command metadata
// @param miner - The configured miner, or a name-only miner for the project command
// @param coin - The coin to project
// @param hashrate - The reported hashrate in H/s
func project(ctx context.Context, m *metadata, miner config.Miner, coin reward.CoinType, hashrate decimal.Decimal) result {
	res := result{miner: miner, coin: coin}
	res.projection, res.baseline, res.err = m.requestor.ProjectWithBaseline(ctx, coin, hashrate)
	res.instant = time.Now()

	log := m.log.WithFields(logger.Fields{"coin": coin, "miner": miner.Name})
	if res.err != nil {
		log.WithError(res.err).WithFields(logger.Fields{"kind": reward.KindOf(res.err).String()}).
			Warn("Projection failed.")
		return res
	}
	log.WithFields(logger.Fields{"per_day": res.projection.RewardPerDay.String()}).Debug("Projection made.")
	return res
}

// Store the successful projections when a database is configured.
// @param m - The command metadata
// @param results - Successful projections only
func store(m *metadata, results []result) error {
	if !m.config.RecordHistory() || len(results) == 0 {
		return nil
	}

	m.log.Info("Storing projections...")
	rec, err := recorder.Open(m.config, m.requestor.Type())
	if err != nil {
		return err
	}
	entries := make([]recorder.Entry, 0, len(results))
	for _, res := range results {
		entries = append(entries, recorder.Entry{
			Miner:      res.miner.Name,
			Baseline:   res.baseline,
			Projection: res.projection,
			Instant:    res.instant,
		})
	}
	if err := rec.Record(entries); err != nil {
		return err
	}
	m.log.WithFields(logger.Fields{"count": len(entries)}).Info("Projections stored.")
	return nil
}

// ====================================
// Support
// ====================================

func printJSON(handle io.Writer, message interface{}) error {
	b, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintf(handle, "%s\n", b)
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM so in-flight fetches stop.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
