package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/adapter/http/middleware"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/auth"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "walletctl",
		Short:         "Campus wallet CLI tool",
		Long:          `A command line interface for interacting with the campus wallet API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("WALLET_URL", "http://localhost:8080"), "Base URL of the wallet API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("WALLET_TOKEN"), "Bearer token (defaults to $WALLET_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		balanceCmd(opts),
		transferCmd(opts),
		requestCmd(opts),
		walletCmd(opts),
		reportCmd(opts),
		ledgerCmd(opts),
		tokenCmd(),
	)

	return rootCmd
}

func (o *options) client() *apiClient {
	return &apiClient{
		baseURL: o.baseURL,
		token:   o.token,
		http:    &http.Client{Timeout: o.timeout},
	}
}

func balanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [username]",
		Short: "Show an account balance, your own when no username is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				var account dto.AccountResponse
				if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts/me", nil, nil, &account); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", account.Username, account.Balance)
				return nil
			}

			var balance dto.BalanceResponse
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/balance"
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, nil, &balance); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", balance.Username, balance.Balance)
			return nil
		},
	}
}

func transferCmd(opts *options) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "transfer <receiver> <amount>",
		Short: "Send money to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			var tx dto.TransactionResponse
			body := dto.TransferRequest{Receiver: args[0], Amount: amount}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transfers", idempotent(key), body, &tx); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tx)
		},
	}
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")

	return cmd
}

func requestCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Payment request operations",
	}

	var key string
	create := &cobra.Command{
		Use:   "create <requestee> <amount>",
		Short: "Ask another account for money",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			var req dto.PaymentRequestResponse
			body := dto.CreatePaymentRequestRequest{Requestee: args[0], Amount: amount}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/payment-requests", idempotent(key), body, &req); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), req)
		},
	}
	create.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")

	respond := func(use, decision, short string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var req dto.PaymentRequestResponse
				path := "/api/v1/payment-requests/" + url.PathEscape(args[0]) + "/respond"
				body := dto.RespondPaymentRequestRequest{Decision: decision}
				if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, body, &req); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), req)
			},
		}
	}

	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Withdraw a request you made",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req dto.PaymentRequestResponse
			path := "/api/v1/payment-requests/" + url.PathEscape(args[0]) + "/cancel"
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, nil, &req); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), req)
		},
	}

	var direction, status string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List payment requests you sent or received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "direction", direction)
			setIf(q, "status", status)
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			var resp dto.ListPaymentRequestsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, withQuery("/api/v1/payment-requests", q), nil, nil, &resp); err != nil {
				return err
			}
			return printRequests(cmd.OutOrStdout(), resp.PaymentRequests)
		},
	}
	list.Flags().StringVar(&direction, "direction", "", "incoming, outgoing or all")
	list.Flags().StringVar(&status, "status", "", "PENDING, COMPLETED, REJECTED or CANCELLED")
	list.Flags().IntVar(&limit, "limit", 0, "Maximum number of requests")

	cmd.AddCommand(
		create,
		respond("accept", "accept", "Pay a request addressed to you"),
		respond("reject", "reject", "Decline a request addressed to you"),
		cancel,
		list,
	)
	return cmd
}

func walletCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	var key string
	adjust := &cobra.Command{
		Use:   "adjust <username> <amount>",
		Short: "Deposit (positive) or withdraw (negative) on behalf of a user, admin only",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			var resp dto.AdjustWalletResponse
			body := dto.AdjustWalletRequest{Username: args[0], Amount: amount}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/wallet/adjust", idempotent(key), body, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	adjust.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")
	// Negative amounts look like flags to cobra otherwise.
	adjust.Flags().SetInterspersed(false)

	cmd.AddCommand(adjust)
	return cmd
}

func reportCmd(opts *options) *cobra.Command {
	var username, preset, from, to string
	var compare bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show income and spending for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "username", username)
			setIf(q, "preset", preset)
			setIf(q, "from", from)
			setIf(q, "to", to)
			if compare {
				q.Set("compare", "true")
			}

			var report dto.ReportResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, withQuery("/api/v1/reports", q), nil, nil, &report); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Account to report on (admins only for others)")
	cmd.Flags().StringVar(&preset, "preset", "", "hour, day, week, month or year")
	cmd.Flags().StringVar(&from, "from", "", "Range start, RFC3339")
	cmd.Flags().StringVar(&to, "to", "", "Range end, RFC3339")
	cmd.Flags().BoolVar(&compare, "compare", false, "Include the previous period")

	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.ConsistencyResponse
			err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil, nil, &result)
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				// A drifted ledger answers 409 with the totals, not an error envelope.
				if jsonErr := json.Unmarshal(apiErr.Raw, &result); jsonErr == nil {
					_ = printJSON(cmd.OutOrStdout(), result)
				}
				return fmt.Errorf("consistency check FAILED: difference %d", result.Difference)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.AddCommand(consistency)
	return cmd
}

func tokenCmd() *cobra.Command {
	var secret, username, accountID, role string
	var ttl time.Duration
	var disabled bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with the shared secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or $JWT_SECRET)")
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(domain.Identity{
				AccountID: accountID,
				Username:  username,
				Role:      domain.Role(role),
				Enabled:   !disabled,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().StringVar(&username, "username", "", "Username to embed")
	cmd.Flags().StringVar(&accountID, "account-id", "", "Account ID to embed")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "STUDENT, VENDOR or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Mark the account as disabled")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func parseAmount(s string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: must be an integer in minor units", s)
	}
	return amount, nil
}

func idempotent(key string) map[string]string {
	if key == "" {
		key = ulid.Make().String()
	}
	return map[string]string{middleware.IdempotencyKeyHeader: key}
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRequests(w io.Writer, reqs []*dto.PaymentRequestResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREQUESTER\tREQUESTEE\tAMOUNT\tSTATUS\tCREATED")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncate(r.ID, 12), r.Requester, r.Requestee, r.Amount, r.Status, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
