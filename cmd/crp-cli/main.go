package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"crp/crypto"
)

const defaultKeyFile = "wallet.key"

var rpcEndpoint string

func main() {
	rpcEndpoint = strings.TrimSpace(os.Getenv("CRP_RPC_URL"))
	if rpcEndpoint == "" {
		rpcEndpoint = "http://127.0.0.1:8645"
	}

	args := os.Args[1:]
	if len(args) < 1 {
		printUsage()
		return
	}

	switch args[0] {
	case "generate-key":
		generateKey()
	case "address":
		showAddress()
	case "balance":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		getBalance(args[1])
	case "pool":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a pool id.")
			printUsage()
			return
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid pool id.")
			return
		}
		getPool(id)
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
	}
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(defaultKeyFile, key.Bytes(), 0600); err != nil {
		panic(fmt.Sprintf("Failed to save key to %s: %v", defaultKeyFile, err))
	}
	fmt.Printf("Generated new key and saved to %s\n", defaultKeyFile)
	fmt.Printf("Your address is: %s\n", key.PubKey().Address().String())
	fmt.Println("Store this file securely.")
}

func showAddress() {
	raw, err := os.ReadFile(defaultKeyFile)
	if err != nil {
		fmt.Printf("Error reading %s: %v (run crp-cli generate-key first)\n", defaultKeyFile, err)
		return
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		fmt.Printf("Error parsing key: %v\n", err)
		return
	}
	fmt.Println(key.PubKey().Address().String())
}

func getBalance(addr string) {
	result, err := call("treasury_balance", map[string]any{"address": addr})
	if err != nil {
		fmt.Printf("Error fetching balance: %v\n", err)
		return
	}
	fmt.Printf("Balance for %s: %v\n", addr, result["balance"])
}

func getPool(id uint64) {
	result, err := call("pool_get", map[string]any{"poolId": id})
	if err != nil {
		fmt.Printf("Error fetching pool: %v\n", err)
		return
	}
	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("Error rendering pool: %v\n", err)
		return
	}
	fmt.Println(string(pretty))
}

func call(method string, params map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []any{params},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(os.Getenv("CRP_RPC_TOKEN")); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var decoded struct {
		Result map[string]any `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	return decoded.Result, nil
}

func printUsage() {
	fmt.Println("Usage: crp-cli <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key         - Generates a new key and saves to wallet.key")
	fmt.Println("  address              - Prints the address for the local wallet.key")
	fmt.Println("  balance <address>    - Shows the treasury balance for an address")
	fmt.Println("  pool <id>            - Shows an investment pool record")
	fmt.Println("Environment:")
	fmt.Println("  CRP_RPC_URL          - RPC endpoint (default http://127.0.0.1:8645)")
	fmt.Println("  CRP_RPC_TOKEN        - Bearer token for mutating methods")
}
