package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/providers/file"

	"github.com/dexloom/lloom/accounting"
	"github.com/dexloom/lloom/apiconfig"
	"github.com/dexloom/lloom/eip712"
	"github.com/dexloom/lloom/logging"
	"github.com/dexloom/lloom/nonce"
	"github.com/dexloom/lloom/protocol"
	"github.com/dexloom/lloom/settlement"
	"github.com/dexloom/lloom/validation"
)

// exchangeBundle is the offline dispute-check input: a signed request and
// the signed response claiming to answer it, as captured from the wire.
type exchangeBundle struct {
	Request  protocol.SignedRequest  `json:"request"`
	Response protocol.SignedResponse `json:"response"`
}

// Example command:
// ./lloom-verify --bundle exchange.json --config config.yaml --at 1700000000 --record
func main() {
	var bundlePath string
	var configPath string
	var atUnix int64
	var record bool

	flag.StringVar(&bundlePath, "bundle", "", "path to exchange bundle JSON (request + response)")
	flag.StringVar(&configPath, "config", "config.yaml", "path to config YAML")
	flag.Int64Var(&atUnix, "at", 0, "verification time as unix seconds (default: now)")
	flag.BoolVar(&record, "record", false, "record verified usage into the accounting ledger")
	flag.Parse()

	if bundlePath == "" {
		fmt.Fprintln(os.Stderr, "--bundle is required")
		os.Exit(2)
	}

	manager := &apiconfig.ConfigManager{KoanProvider: file.Provider(configPath)}
	if err := manager.Load(); err != nil {
		logging.Error("Failed to load config", protocol.Config, "path", configPath, "error", err)
		os.Exit(1)
	}
	config := manager.GetConfig()

	domain, err := config.EIP712Domain()
	if err != nil {
		logging.Error("Invalid domain config", protocol.Config, "error", err)
		os.Exit(1)
	}
	models, err := config.Registry()
	if err != nil {
		logging.Error("Invalid model config", protocol.Config, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	ledger, err := openNonceLedger(ctx, config)
	if err != nil {
		logging.Error("Failed to open nonce ledger", protocol.Nonces, "error", err)
		os.Exit(1)
	}

	bundle, err := readBundle(bundlePath)
	if err != nil {
		logging.Error("Failed to read bundle", protocol.Settle, "path", bundlePath, "error", err)
		os.Exit(1)
	}

	at := time.Now()
	if atUnix > 0 {
		at = time.Unix(atUnix, 0)
	}

	verifier := settlement.NewVerifier(domain, validation.NewValidator(models), ledger)
	result, err := verifier.VerifyExchange(ctx, bundle.Request, bundle.Response, at)
	if err != nil {
		fmt.Printf("REJECTED: %v\n", err)
		os.Exit(1)
	}

	structHash, err := eip712.RequestStructHash(bundle.Request.Commitment)
	if err != nil {
		logging.Error("Failed to hash request", protocol.Settle, "error", err)
		os.Exit(1)
	}
	fmt.Println("VERIFIED")
	fmt.Printf("  request   %s\n", eip712.CanonicalRequestHash(structHash, bundle.Request.Signature))
	fmt.Printf("  client    %s\n", result.Client)
	fmt.Printf("  executor  %s\n", result.Executor)
	fmt.Printf("  model     %s\n", bundle.Request.Commitment.Model)
	fmt.Printf("  cost      %s wei\n", result.Cost)

	if record {
		if err := recordUsage(ctx, config, result); err != nil {
			logging.Error("Failed to record usage", protocol.Accounting, "error", err)
			os.Exit(1)
		}
		fmt.Println("  recorded")
	}
}

func readBundle(path string) (*exchangeBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bundle exchangeBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// openNonceLedger uses the configured SQLite path so repeated runs see
// previously recorded nonces; without one, each run starts fresh.
func openNonceLedger(ctx context.Context, config apiconfig.Config) (nonce.Ledger, error) {
	if path := config.Ledger.NoncePath; path != "" {
		return nonce.OpenSqliteLedger(ctx, path)
	}
	return nonce.NewMemoryLedger(), nil
}

func recordUsage(ctx context.Context, config apiconfig.Config, result *settlement.VerifiedExchange) error {
	if config.Ledger.UsagePath == "" {
		return fmt.Errorf("ledger.usage_path is not configured")
	}
	ledger, err := accounting.OpenSqliteLedger(ctx, config.Ledger.UsagePath, result.Client)
	if err != nil {
		return err
	}
	defer ledger.Close()
	return ledger.RecordUsage(ctx, result)
}
