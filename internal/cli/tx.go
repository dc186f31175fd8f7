package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"compasseval/internal/chain"
	"compasseval/internal/compass"
	"compasseval/internal/config"
	"compasseval/internal/gasreport"
	"compasseval/internal/logging"
)

const defaultGasReportPath = "gas_report.json"

// txBackend is the RPC surface the tx command needs.
type txBackend interface {
	chain.ReceiptSource
	ChainID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, from common.Address, unsigned compass.UnsignedTx) (uint64, error)
	Send(ctx context.Context, tx *types.Transaction) (common.Hash, error)
	Close()
}

// dialChain is a test seam for the RPC connection.
var dialChain = func(ctx context.Context) (txBackend, error) {
	broadcaster, err := chain.DialFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return broadcaster, nil
}

// runTx builds the handler for the tx command.
func runTx(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .compasseval.yml)")
		endpoint := fs.String("path", "", "Compass transaction endpoint, for example /v1/aave/supply")
		bodyPath := fs.String("body", "", "JSON file with the request body")
		planPath := fs.String("plan", "", "YAML plan of transactions to send in order")
		reportPath := fs.String("report", defaultGasReportPath, "Where --plan writes its gas report")
		noWait := fs.Bool("no-wait", false, "Return after broadcasting without waiting for the receipt")
		logLevel := fs.String("log-level", "", "Log level: debug|info|warn|error")
		positional, code, ok := parseFlags(cmd, fs, args, stdout, stderr)
		if !ok {
			return code
		}
		if len(positional) > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(positional, " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		planMode := strings.TrimSpace(*planPath) != ""
		switch {
		case planMode && (*endpoint != "" || *bodyPath != ""):
			fmt.Fprintln(stderr, "--plan cannot be combined with --path or --body")
			return ExitUsage
		case planMode && *noWait:
			fmt.Fprintln(stderr, "--plan waits for every receipt; --no-wait is not supported")
			return ExitUsage
		case !planMode && flagWasSet(fs, "report"):
			fmt.Fprintln(stderr, "--report requires --plan")
			return ExitUsage
		case !planMode && (strings.TrimSpace(*endpoint) == "" || strings.TrimSpace(*bodyPath) == ""):
			fmt.Fprintln(stderr, "Missing --path or --body")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		if err := initLogging(cfg, *logLevel, stderr); err != nil {
			fmt.Fprintf(stderr, "Invalid log level: %v\n", err)
			return ExitUsage
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if planMode {
			plan, err := gasreport.LoadPlan(*planPath)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to load plan: %v\n", err)
				return ExitError
			}
			return runPlan(ctx, cfg, *planPath, plan, *reportPath, stdout, stderr)
		}

		body, err := readJSONBody(*bodyPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read body: %v\n", err)
			return ExitError
		}
		if err := submitTransaction(ctx, cfg, *endpoint, body, !*noWait, stdout); err != nil {
			fmt.Fprintf(stderr, "Transaction failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}

// txSession holds the clients and signer shared by every transaction of one invocation.
type txSession struct {
	client  *compass.Client
	backend txBackend
	signer  *chain.Signer
	policy  chain.PollPolicy
	logger  *slog.Logger
}

// openTxSession connects to Compass and RPC_URL and loads PRIVATE_KEY.
func openTxSession(ctx context.Context, cfg config.Config) (*txSession, error) {
	client, err := compass.ClientFromEnv(cfg.Compass.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	backend, err := dialChain(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := resolveChainID(ctx, cfg.Chain, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	signer, err := chain.SignerFromEnv(chainID)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &txSession{
		client:  client,
		backend: backend,
		signer:  signer,
		policy:  pollPolicy(cfg.Chain),
		logger:  logging.New("tx").With(slog.String("chain_id", chainID.String())),
	}, nil
}

func (s *txSession) Close() {
	s.backend.Close()
}

// send builds a transaction through Compass, optionally estimates its gas,
// signs it and broadcasts it.
func (s *txSession) send(ctx context.Context, endpoint string, body any, estimate bool) (common.Hash, uint64, error) {
	unsigned, err := s.client.BuildTransaction(ctx, endpoint, body)
	if err != nil {
		return common.Hash{}, 0, fmt.Errorf("build transaction: %w", err)
	}
	s.logger.Debug("transaction built", slog.String("path", endpoint), slog.String("to", unsigned.To.Hex()))

	var estimated uint64
	if estimate {
		estimated, err = s.backend.EstimateGas(ctx, s.signer.Address(), unsigned)
		if err != nil {
			return common.Hash{}, 0, err
		}
	}
	signed, err := s.signer.Sign(unsigned)
	if err != nil {
		return common.Hash{}, 0, err
	}
	hash, err := s.backend.Send(ctx, signed)
	if err != nil {
		return common.Hash{}, 0, err
	}
	s.logger.Info("transaction sent", slog.String("path", endpoint), slog.String("hash", hash.Hex()), slog.String("from", s.signer.Address().Hex()))
	return hash, estimated, nil
}

// submitTransaction builds the transaction through Compass, signs it with
// PRIVATE_KEY, broadcasts it to RPC_URL and optionally waits for the receipt.
func submitTransaction(ctx context.Context, cfg config.Config, endpoint string, body json.RawMessage, wait bool, stdout io.Writer) error {
	session, err := openTxSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	hash, _, err := session.send(ctx, endpoint, body, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Transaction: %s\n", hash.Hex())
	if !wait {
		return nil
	}

	receipt, err := chain.WaitForReceipt(ctx, session.backend, hash, session.policy)
	if receipt != nil {
		fmt.Fprintf(stdout, "Block: %s\n", receipt.BlockNumber)
		fmt.Fprintf(stdout, "Gas used: %d\n", receipt.GasUsed)
		fmt.Fprintf(stdout, "Fee: %s ETH\n", chain.FormatGasCost(receipt))
	}
	if errors.Is(err, chain.ErrTransactionReverted) {
		fmt.Fprintln(stdout, "Status: reverted")
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Status: success")
	return nil
}

// runPlan sends every plan step in order, waiting for each receipt before the
// next build, and writes the gas report. A reverted step is recorded and the
// plan continues; any other failure stops it and the report keeps the steps
// confirmed so far.
func runPlan(ctx context.Context, cfg config.Config, planPath string, plan gasreport.Plan, reportPath string, stdout, stderr io.Writer) int {
	session, err := openTxSession(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Transaction failed: %v\n", err)
		return ExitError
	}
	defer session.Close()

	report := gasreport.Report{
		Plan:    planPath,
		ChainID: session.signer.ChainID().String(),
		Sender:  session.signer.Address().Hex(),
	}
	runErr := sendPlanSteps(ctx, session, plan, &report, stdout)
	report.Totals = gasreport.Summarize(report.Steps)
	report.GeneratedAt = time.Now().UTC()
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if err := gasreport.Write(reportPath, report); err != nil {
		fmt.Fprintf(stderr, "Failed to write gas report: %v\n", err)
		return ExitError
	}

	totals := report.Totals
	fmt.Fprintf(stdout, "Total gas used: %d (estimated %d)\n", totals.TotalUsedGas, totals.TotalEstimatedGas)
	fmt.Fprintf(stdout, "Total fee: %s ETH\n", totals.TotalFeeETH)
	fmt.Fprintf(stdout, "Report: %s\n", reportPath)
	if runErr != nil {
		fmt.Fprintf(stderr, "Plan stopped: %v\n", runErr)
		return ExitError
	}
	if !totals.AllSucceeded {
		fmt.Fprintln(stderr, "Plan finished with reverted transactions")
		return ExitError
	}
	return ExitOK
}

func sendPlanSteps(ctx context.Context, session *txSession, plan gasreport.Plan, report *gasreport.Report, stdout io.Writer) error {
	total := len(plan.Steps)
	for i, step := range plan.Steps {
		hash, estimated, err := session.send(ctx, step.Path, step.Body, true)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
		receipt, err := chain.WaitForReceipt(ctx, session.backend, hash, session.policy)
		if err != nil && !errors.Is(err, chain.ErrTransactionReverted) {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
		result := gasreport.NewStepResult(i+1, step.Name, step.Path, time.Now(), estimated, receipt)
		report.Steps = append(report.Steps, result)

		status := "success"
		if !result.Succeeded() {
			status = "reverted"
		}
		fmt.Fprintf(stdout, "[%d/%d] %s %s: gas used %d (estimated %d), fee %s ETH, %s\n",
			i+1, total, step.Name, result.TxHash, result.UsedGas, result.EstimatedGas, result.FeeETH, status)
		session.logger.Info("plan step confirmed",
			slog.Int("step", i+1), slog.String("name", step.Name), slog.Uint64("gas_used", result.UsedGas), slog.String("status", status))
	}
	return nil
}

// resolveChainID uses the configured chain id, or asks the node when unset.
func resolveChainID(ctx context.Context, cfg config.ChainConfig, backend txBackend) (*big.Int, error) {
	if cfg.ChainID > 0 {
		return big.NewInt(cfg.ChainID), nil
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	return chainID, nil
}

func pollPolicy(cfg config.ChainConfig) chain.PollPolicy {
	return chain.PollPolicy{
		Initial:     time.Duration(cfg.PollInitialMillis) * time.Millisecond,
		Max:         time.Duration(cfg.PollMaxMillis) * time.Millisecond,
		Multiplier:  cfg.PollMultiplier,
		MaxAttempts: cfg.PollMaxAttempts,
	}
}

func readJSONBody(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}
