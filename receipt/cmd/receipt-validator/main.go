package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cloudx-io/openmint/receipt"
)

func main() {
	// Define CLI flags
	var (
		receiptInput = flag.String("receipt", "", "Settlement receipt (file path or inline base64 COSE)")
		keyInput     = flag.String("public-key", "", "House verification key (file path or inline PEM)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" || *keyInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: Both inputs are required (--receipt, --public-key)\n")
		os.Exit(1)
	}

	receiptB64, err := readInput(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}
	keyPEM, err := readInput(*keyInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	coseBytes, err := base64.StdEncoding.DecodeString(string(receiptB64))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding receipt base64: %v\n", err)
		os.Exit(2)
	}
	publicKey, err := receipt.ParsePublicKeyPEM(string(keyPEM))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing public key: %v\n", err)
		os.Exit(2)
	}

	rcpt, err := receipt.Verify(coseBytes, publicKey)
	if err != nil {
		if *outputFormat == "json" {
			outputJSON(false, nil, err)
		} else {
			fmt.Println("Settlement Receipt Validator")
			fmt.Println("============================")
			fmt.Printf("VALIDATION: ✗ FAILED (%v)\n", err)
		}
		os.Exit(1)
	}

	if *outputFormat == "json" {
		outputJSON(true, rcpt, nil)
	} else {
		outputText(rcpt)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Settlement Receipt Validator")
	fmt.Println()
	fmt.Println("Verifies a COSE-signed auction settlement receipt against the house key.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <base64> --public-key <pem> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --receipt <base64>     Receipt from the finalize response (receipt_cose_base64)")
	fmt.Println("  --public-key <pem>     House verification key in PEM format")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --format <text|json>   Output format (default: text)")
	fmt.Println("  --help                 Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each flag accepts either a file path or the inline value.")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Receipt valid")
	fmt.Println("  1 - Receipt invalid")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as the inline value
	return []byte(input), nil
}

func outputText(rcpt *receipt.SettlementReceipt) {
	fmt.Println("Settlement Receipt Validator")
	fmt.Println("============================")
	fmt.Println()
	fmt.Printf("  Token ID:          %d\n", rcpt.TokenID)
	fmt.Printf("  Winner:            %s\n", rcpt.Winner)
	fmt.Printf("  Amount:            %s\n", rcpt.Amount)
	fmt.Printf("  Proceeds Account:  %s\n", rcpt.ProceedsAccount)
	fmt.Printf("  Settled At:        %s\n", rcpt.SettledAt)
	fmt.Println()
	fmt.Println("VALIDATION: ✓ PASSED")
}

func outputJSON(valid bool, rcpt *receipt.SettlementReceipt, verr error) {
	output := map[string]any{
		"valid": valid,
	}
	if rcpt != nil {
		output["receipt"] = map[string]any{
			"token_id":         rcpt.TokenID,
			"winner":           rcpt.Winner,
			"amount":           rcpt.Amount,
			"proceeds_account": rcpt.ProceedsAccount,
			"settled_at":       rcpt.SettledAt,
		}
	}
	if verr != nil {
		output["error"] = verr.Error()
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
