// gsctl is the operator CLI: key management, command submission against
// a node, record queries, and a node-less local mode backed by sqlite.
package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/handlers"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/store/sqlite"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/address"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/sdk/go/ghostspeak"
)

var (
	flagNode      string
	flagKey       string
	flagDB        string
	flagNamespace string
	flagAuthority string
)

func main() {
	root := &cobra.Command{
		Use:           "gsctl",
		Short:         "GhostSpeak marketplace control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagNode, "node", envOr("GS_NODE", "http://localhost:8080"), "node base URL")
	root.PersistentFlags().StringVar(&flagKey, "key", envOr("GS_KEY", ""), "path to signing key file")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "sqlite path for local mode (bypasses the node)")
	root.PersistentFlags().StringVar(&flagNamespace, "namespace", envOr("GS_NAMESPACE", ""), "program namespace (hex), local mode")
	root.PersistentFlags().StringVar(&flagAuthority, "authority", envOr("GS_AUTHORITY", ""), "protocol authority (hex), local mode")

	root.AddCommand(keygenCmd(), submitCmd(), recordCmd(), recordsCmd(), balanceCmd(), deriveCmd(), faucetCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func keygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keys.NewKeypair()
			if err != nil {
				return err
			}
			seed := hex.EncodeToString(kp.Private.Seed())
			if out == "" {
				fmt.Println(seed)
			} else if err := os.WriteFile(out, []byte(seed+"\n"), 0o600); err != nil {
				return err
			}
			fmt.Println("pubkey:", kp.Public)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the seed to this file instead of stdout")
	return cmd
}

func loadKeypair() (*keys.Keypair, error) {
	if flagKey == "" {
		return nil, fmt.Errorf("--key is required")
	}
	b, err := os.ReadFile(flagKey)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file must hold a %d-byte hex seed", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, err := keys.FromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &keys.Keypair{Public: pub, Private: priv}, nil
}

func submitCmd() *cobra.Command {
	var paramsJSON, paramsFile string
	cmd := &cobra.Command{
		Use:   "submit <command-name>",
		Short: "Sign and submit a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			params := []byte(paramsJSON)
			if paramsFile != "" {
				b, err := os.ReadFile(paramsFile)
				if err != nil {
					return err
				}
				params = b
			}
			if flagDB != "" {
				return localSubmit(cmd.Context(), name, params)
			}

			kp, err := loadKeypair()
			if err != nil {
				return err
			}
			digest := ghostspeak.SubmissionDigest(name, params)
			body, _ := json.Marshal(map[string]any{
				"name":   name,
				"params": json.RawMessage(params),
				"signatures": []map[string]string{{
					"signer":    kp.Public.String(),
					"signature": hex.EncodeToString(kp.Sign(digest)),
				}},
			})
			return postJSON(flagNode+"/v1/commands", body)
		},
	}
	cmd.Flags().StringVar(&paramsJSON, "params", "{}", "command parameters as JSON")
	cmd.Flags().StringVar(&paramsFile, "file", "", "read parameters from a JSON file")
	return cmd
}

// localSubmit runs the command against a sqlite-backed engine, trusting
// the declared signers the way a dev node with trust_signers would.
func localSubmit(ctx context.Context, name string, params []byte) error {
	db, err := sqlite.Open(flagDB)
	if err != nil {
		return err
	}
	defer db.Close()

	namespace, authority, err := localIdentity()
	if err != nil {
		return err
	}
	var buf events.Buffer
	env := runtime.NewEnv(db, db, runtime.SystemClock{}, &buf, namespace)
	eng := handlers.New(env, authority)

	cmdv, err := handlers.Decode(name, params)
	if err != nil {
		return err
	}
	signers, err := declaredSigners(params)
	if err != nil {
		return err
	}
	res, err := eng.Submit(ctx, signers, cmdv)
	if err != nil {
		return err
	}
	printJSON(map[string]any{"result": res, "events": buf.Events})
	return nil
}

func localIdentity() (namespace, authority keys.Pubkey, err error) {
	if flagNamespace != "" {
		if namespace, err = keys.Parse(flagNamespace); err != nil {
			return
		}
	}
	if flagAuthority != "" {
		if authority, err = keys.Parse(flagAuthority); err != nil {
			return
		}
	}
	return
}

// declaredSigners collects every pubkey-shaped value in the parameter
// object. Local mode has no signatures to verify, so any party named in
// the command counts as having signed.
func declaredSigners(params []byte) ([]keys.Pubkey, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(params, &obj); err != nil {
		return nil, err
	}
	var out []keys.Pubkey
	for _, raw := range obj {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			continue
		}
		if pk, err := keys.Parse(s); err == nil {
			out = append(out, pk)
		}
	}
	return out, nil
}

func recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <address>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDB != "" {
				addr, err := keys.Parse(args[0])
				if err != nil {
					return err
				}
				db, err := sqlite.Open(flagDB)
				if err != nil {
					return err
				}
				defer db.Close()
				stored, err := db.Get(cmd.Context(), addr)
				if err != nil {
					return err
				}
				rec, err := state.NewRecord(stored.Type)
				if err != nil {
					return err
				}
				if err := rec.UnmarshalRecord(stored.Data); err != nil {
					return err
				}
				printJSON(map[string]any{"type": stored.Type.String(), "data": rec})
				return nil
			}
			return getJSON(flagNode + "/v1/records/" + args[0])
		},
	}
}

func recordsCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List records of a type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(flagNode + "/v1/records?type=" + typ)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "agent", "record type name")
	return cmd
}

func balanceCmd() *cobra.Command {
	var mint, owner string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a token balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(flagNode + "/v1/balances?mint=" + mint + "&owner=" + owner)
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "token mint (hex)")
	cmd.Flags().StringVar(&owner, "owner", "", "account owner (hex)")
	return cmd
}

func deriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <seed>...",
		Short: "Derive a record address from seeds",
		Long: "Seeds are utf-8 strings; a 64-char hex seed is taken as a pubkey,\n" +
			"a u64: prefix as a little-endian integer seed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, _, err := localIdentity()
			if err != nil {
				return err
			}
			seeds := make([][]byte, 0, len(args))
			for _, a := range args {
				switch {
				case strings.HasPrefix(a, "u64:"):
					var v uint64
					if _, err := fmt.Sscanf(a[4:], "%d", &v); err != nil {
						return err
					}
					seeds = append(seeds, address.U64Seed(v))
				case len(a) == 64:
					pk, err := keys.Parse(a)
					if err != nil {
						return err
					}
					seeds = append(seeds, pk.Bytes())
				default:
					seeds = append(seeds, []byte(a))
				}
			}
			addr, bump, err := address.Find(namespace, seeds...)
			if err != nil {
				return err
			}
			printJSON(map[string]any{"address": addr, "bump": bump})
			return nil
		},
	}
}

func faucetCmd() *cobra.Command {
	var mint, owner string
	var amount uint64
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "faucet",
		Short: "Mint dev tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDB != "" {
				m, err := keys.Parse(mint)
				if err != nil {
					return err
				}
				o, err := keys.Parse(owner)
				if err != nil {
					return err
				}
				db, err := sqlite.Open(flagDB)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.RegisterMint(cmd.Context(), m, decimals); err != nil {
					return err
				}
				return db.Mint(cmd.Context(), m, o, amount)
			}
			body, _ := json.Marshal(map[string]any{
				"mint": mint, "owner": owner, "amount": amount, "decimals": decimals,
			})
			return postJSON(flagNode+"/v1/faucet", body)
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "token mint (hex)")
	cmd.Flags().StringVar(&owner, "owner", "", "recipient (hex)")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to mint")
	cmd.Flags().Uint8Var(&decimals, "decimals", 6, "mint decimals")
	return cmd
}

func postJSON(url string, body []byte) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func getJSON(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, b, "", "  ") == nil {
		b = pretty.Bytes()
	}
	fmt.Println(string(b))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("node returned %s", resp.Status)
	}
	return nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
