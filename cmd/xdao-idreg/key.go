package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"

	"xdao.co/idreg/keys"
	"xdao.co/idreg/model"
)

func cmdKey(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(cfg, args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(cfg, args[1:], out, errOut)
	case "list":
		return cmdKeyList(cfg, args[1:], out, errOut)
	case "show":
		return cmdKeyShow(cfg, args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-idreg key: minimal local key management (KMS-lite)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-idreg key init --name <name> [--scheme <scheme>] [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-idreg key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-idreg key list")
	fmt.Fprintln(w, "  xdao-idreg key show --name <name> [--role <role>]")
}

func openKeyStore(cfg envConfig, errOut io.Writer) (*keys.KeyStore, bool) {
	ks, err := keys.CreateKeyStore(cfg.KeysDir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, false
	}
	return ks, true
}

// requireLabel reports a missing or malformed --name/--from/--role value.
func requireLabel(errOut io.Writer, flagName, v string, check func(string) error) bool {
	if v == "" {
		fmt.Fprintf(errOut, "missing --%s\n", flagName)
		return false
	}
	if err := check(v); err != nil {
		fmt.Fprintf(errOut, "invalid --%s: %v\n", flagName, err)
		return false
	}
	return true
}

func cmdKeyInit(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("name", "", "Key name (directory under the key store)")
	schemeName := fs.String("scheme", string(model.SchemeEd25519), "Signature scheme: ed25519, dilithium3 or schnorr")
	seedHex := fs.String("seed-hex", "", "Seed as 64 hex chars (random when omitted)")
	force := fs.Bool("force", false, "Overwrite an existing root key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !requireLabel(errOut, "name", *name, keys.CheckKeyName) {
		return 2
	}
	scheme, err := model.ParseScheme(*schemeName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --scheme: %v\n", err)
		return 2
	}

	seed := make([]byte, keys.SeedSize)
	if *seedHex != "" {
		if seed, err = keys.ParseSeedHex(*seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else if _, err := rand.Read(seed); err != nil {
		fmt.Fprintf(errOut, "rand: %v\n", err)
		return 1
	}

	ks, ok := openKeyStore(cfg, errOut)
	if !ok {
		return 1
	}
	id, path, err := ks.InitializeRootKey(*name, scheme, seed, *force)
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", id)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyDerive(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)
	from := fs.String("from", "", "Root key name")
	role := fs.String("role", "", "Role label, e.g. writer or ops")
	force := fs.Bool("force", false, "Overwrite an existing role key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !requireLabel(errOut, "from", *from, keys.CheckKeyName) || !requireLabel(errOut, "role", *role, keys.CheckRole) {
		return 2
	}
	ks, ok := openKeyStore(cfg, errOut)
	if !ok {
		return 1
	}
	id, path, err := ks.DeriveKeyFromRole(*from, *role, *force)
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", id)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyShow(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key show", flag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("name", "", "Key name")
	role := fs.String("role", "", "Show the derived role key instead of the root")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !requireLabel(errOut, "name", *name, keys.CheckKeyName) {
		return 2
	}
	ks, ok := openKeyStore(cfg, errOut)
	if !ok {
		return 1
	}
	s, err := ks.LoadSigner(*name, *role)
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	fmt.Fprintln(out, s.Identifier())
	return 0
}

func cmdKeyList(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, ok := openKeyStore(cfg, errOut)
	if !ok {
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\n", e.Name, e.Identifier)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

// signerFlags selects a signer the way ResolveSigner does.
type signerFlags struct {
	scheme  string
	seedHex string
	name    string
	role    string
	keyFile string
}

func (f *signerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.scheme, "scheme", string(model.SchemeEd25519), "Signature scheme (with --seed-hex)")
	fs.StringVar(&f.seedHex, "seed-hex", "", "Signer seed as 64 hex chars")
	fs.StringVar(&f.name, "signer", "", "Signer key name in the key store")
	fs.StringVar(&f.role, "signer-role", "", "Optional signer role (with --signer)")
	fs.StringVar(&f.keyFile, "key-file", "", "Signer key file")
}

func (f *signerFlags) set() bool {
	return f.seedHex != "" || f.name != "" || f.keyFile != ""
}

func (f *signerFlags) resolve(cfg envConfig) (keys.Signer, error) {
	scheme, err := model.ParseScheme(f.scheme)
	if err != nil {
		return nil, err
	}
	ks, err := keys.CreateKeyStore(cfg.KeysDir)
	if err != nil {
		return nil, err
	}
	return ks.ResolveSigner(scheme, f.seedHex, f.name, f.role, f.keyFile)
}

// identity returns --identifier when given, else the signer's identifier.
func (f *signerFlags) identity(cfg envConfig, identifier string) (model.Identifier, error) {
	if identifier != "" {
		return model.ParseIdentifier(identifier)
	}
	s, err := f.resolve(cfg)
	if err != nil {
		return model.Identifier{}, err
	}
	return s.Identifier(), nil
}
