package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/bundle"
)

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	var outPath string
	var keyItems stringList
	var labelItems stringList
	var noIndex bool
	sf.register(fs)
	fs.StringVar(&outPath, "out", "", "Bundle file to write")
	fs.Var(&keyItems, "key", "Export only this identity (64 hex chars, repeatable)")
	fs.Var(&labelItems, "label", "Label as <name>=<64hex identity key> (repeatable)")
	fs.BoolVar(&noIndex, "no-index", false, "Omit index.json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if sf.listBackends {
		printBackends(out)
		return 0
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	var storageKeys [][]byte
	for _, it := range keyItems {
		k, err := registeredStorageKey(it)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --key: %v\n", err)
			return 2
		}
		storageKeys = append(storageKeys, k)
	}
	labels := map[string][]byte{}
	for _, it := range labelItems {
		name, keyHex, ok := strings.Cut(it, "=")
		if !ok || name == "" {
			fmt.Fprintf(errOut, "invalid --label %q (want <name>=<64hex>)\n", it)
			return 2
		}
		k, err := registeredStorageKey(keyHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --label: %v\n", err)
			return 2
		}
		labels[name] = k
	}

	store, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create --out: %v\n", err)
		return 1
	}
	w := bufio.NewWriter(f)
	opts := bundle.ExportOptions{Labels: labels, IncludeIndex: !noIndex}

	if len(storageKeys) > 0 {
		err = bundle.Export(w, store, storageKeys, opts)
	} else if scanner, ok := store.(storage.Scanner); ok {
		err = bundle.ExportAll(w, scanner, opts)
	} else {
		err = fmt.Errorf("backend cannot enumerate its entries; pass --key")
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outPath)
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Exported to %s\n", outPath)
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	var inPath string
	sf.register(fs)
	fs.StringVar(&inPath, "in", "", "Bundle file to read")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if sf.listBackends {
		printBackends(out)
		return 0
	}
	if inPath == "" {
		fmt.Fprintln(errOut, "missing --in")
		return 2
	}

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "open --in: %v\n", err)
		return 1
	}
	defer f.Close()

	store, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	n, err := bundle.Import(bufio.NewReader(f), store)
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Imported %d entries\n", n)
	return 0
}

func registeredStorageKey(keyHex string) ([]byte, error) {
	k, err := model.ParseIdenKey(keyHex)
	if err != nil {
		return nil, err
	}
	return model.EncodeKey(model.RegisteredKey{ID: k})
}
