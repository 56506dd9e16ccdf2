package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	_ "xdao.co/idreg/storage/bolt"
	_ "xdao.co/idreg/storage/grpckv"
	_ "xdao.co/idreg/storage/localfs"
	_ "xdao.co/idreg/storage/memory"
	_ "xdao.co/idreg/storage/sqlite"
)

// envConfig holds defaults for flags shared by several subcommands.
type envConfig struct {
	Target   string        `env:"XDAO_IDREG_TARGET" envDefault:"127.0.0.1:7788"`
	Network  string        `env:"XDAO_IDREG_NETWORK" envDefault:"xdao-idreg-local"`
	Contract string        `env:"XDAO_IDREG_CONTRACT"`
	KeysDir  string        `env:"XDAO_IDREG_KEYS_DIR"`
	Timeout  time.Duration `env:"XDAO_IDREG_TIMEOUT" envDefault:"10s"`
}

func loadEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}
	cfg, err := loadEnv()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(cfg, args[1:], out, errOut)
	case "nonce":
		return cmdNonce(cfg, args[1:], out, errOut)
	case "get":
		return cmdGet(cfg, args[1:], out, errOut)
	case "write":
		return cmdWrite(cfg, args[1:], out, errOut)
	case "set-admin":
		return cmdSetAdmin(cfg, args[1:], out, errOut)
	case "get-admin":
		return cmdGetAdmin(cfg, args[1:], out, errOut)
	case "payload":
		return cmdPayload(cfg, args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-idreg: identity registry CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-idreg key init --name <name> [--scheme ed25519|dilithium3|schnorr] [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-idreg key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-idreg key list")
	fmt.Fprintln(w, "  xdao-idreg key show --name <name> [--role <role>]")
	fmt.Fprintln(w, "  xdao-idreg nonce (--identifier <scheme:hex> | <signer flags>) [<registry flags>]")
	fmt.Fprintln(w, "  xdao-idreg get --key <64hex> [<registry flags>]")
	fmt.Fprintln(w, "  xdao-idreg write --key <64hex> --name <text> [--descr <text>] [--link <descr>=<url> ...] [--nonce <n>] <signer flags> [<registry flags>]")
	fmt.Fprintln(w, "  xdao-idreg set-admin (--identifier <scheme:hex> | <signer flags>) [<registry flags>]")
	fmt.Fprintln(w, "  xdao-idreg get-admin [<registry flags>]")
	fmt.Fprintln(w, "  xdao-idreg payload --key <64hex> --nonce <n> (--identifier <scheme:hex> | <signer flags>) [--network <n>] [--contract <64hex>]")
	fmt.Fprintln(w, "  xdao-idreg export --out <file.tar> (--backend <name> | --store-config <file>) [--label name=file ...]")
	fmt.Fprintln(w, "  xdao-idreg import --in <file.tar> (--backend <name> | --store-config <file>)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signer flags:")
	fmt.Fprintln(w, "  --seed-hex <64hex> [--scheme <scheme>] | --signer <name> [--signer-role <role>] | --key-file <path>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Registry flags:")
	fmt.Fprintln(w, "  --target <host:port>        remote xdao-idregd (default $XDAO_IDREG_TARGET)")
	fmt.Fprintln(w, "  --backend <name> ...        open a local store instead (see --list-backends)")
	fmt.Fprintln(w, "  --network, --contract       signing domain for local stores and payload")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys are stored under ~/.xdao/idreg-keys/<name> (override with $XDAO_IDREG_KEYS_DIR)")
	fmt.Fprintln(w, "  - write fetches the signer's nonce unless --nonce is given")
	fmt.Fprintln(w, "  - payload prints the hex bytes a signer signs to authorize write")
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
