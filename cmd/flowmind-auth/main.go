package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/flowmindhq/flowmind/internal/app"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: flowmind-auth [flags] <command> [args]

Commands:
  login                 run the OAuth login dance for the user
  status                print token status for the user
  logout                remove the stored token for the user
  accounts              list brokerage accounts
  quotes SYM [SYM...]   fetch quotes for the given symbols
  call METHOD PATH      issue a raw authenticated API call

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: FLOWMIND_CONFIG, then config/flowmind.toml)")
	userID := flag.String("user", "default", "user id to operate on")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch flag.Arg(0) {
	case "login":
		err = runLogin(ctx, a, *userID)
	case "status":
		err = runStatus(a, *userID)
	case "logout":
		a.Session.Logout(*userID)
		fmt.Println("logged out")
	case "accounts":
		err = runAccounts(ctx, a, *userID)
	case "quotes":
		if flag.NArg() < 2 {
			usage()
			os.Exit(2)
		}
		err = runQuotes(ctx, a, *userID, flag.Args()[1:])
	case "call":
		if flag.NArg() != 3 {
			usage()
			os.Exit(2)
		}
		err = runCall(ctx, a, *userID, strings.ToUpper(flag.Arg(1)), flag.Arg(2))
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runLogin(ctx context.Context, a *app.App, userID string) error {
	state := a.Session.NewState()

	fmt.Println("Open this URL in a browser and authorize access:")
	fmt.Println()
	fmt.Println("  " + a.Session.LoginURL(state))
	fmt.Println()
	fmt.Print("Paste the authorization code from the redirect: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return fmt.Errorf("no code entered")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return fmt.Errorf("no code entered")
	}

	if err := a.Session.Login(ctx, userID, code, ""); err != nil {
		return err
	}

	return runStatus(a, userID)
}

func runStatus(a *app.App, userID string) error {
	status := a.Session.Status(userID)
	printJSON(status)

	if status.Authenticated {
		if identity, err := a.Session.Identity(userID); err == nil {
			printJSON(identity)
		}
	}
	return nil
}

func runAccounts(ctx context.Context, a *app.App, userID string) error {
	accounts, err := a.Brokerage.GetAccounts(ctx, userID)
	if err != nil {
		return err
	}
	printJSON(accounts)
	return nil
}

func runQuotes(ctx context.Context, a *app.App, userID string, symbols []string) error {
	quotes, err := a.Brokerage.GetQuotes(ctx, userID, symbols)
	if err != nil {
		return err
	}
	printJSON(quotes)
	return nil
}

func runCall(ctx context.Context, a *app.App, userID, method, path string) error {
	var result json.RawMessage
	if err := a.Brokerage.Call(ctx, userID, method, path, nil, nil, &result); err != nil {
		return err
	}
	printJSON(result)
	return nil
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
