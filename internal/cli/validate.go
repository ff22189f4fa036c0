package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wxo-labs/studio/internal/config"
	"github.com/wxo-labs/studio/internal/export"
	"github.com/wxo-labs/studio/internal/localtest"
	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/tool"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a tool definition file",
		Long:  "Validate a tool definition file. Bound-tool records and plain OpenAPI documents are detected automatically and checked against their own rules.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return newUsageError(fmt.Sprintf("read %q: %v", args[0], err))
			}
			res := tool.Validate(data)
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", e)
			}
			if !res.OK() {
				return fmt.Errorf("%d validation error(s)", len(res.Errors))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an OpenAPI or Swagger 2.0 document and normalize it",
		Long:  "Import an OpenAPI document from a file or URL. Swagger 2.0 input is converted to OpenAPI 3 on the way in; the normalized document is written as JSON or YAML.",
		Example: strings.TrimSpace(`  wxo-studio import --input swagger.yaml --out tool.json
  wxo-studio import --input https://example.com/openapi.yaml --out tool.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			out, _ := cmd.Flags().GetString("out")
			force, _ := cmd.Flags().GetBool("force")
			if strings.TrimSpace(input) == "" {
				return newUsageError("import: --input is required")
			}

			data, err := oas.Import(cmd.Context(), input)
			if err != nil {
				return err
			}
			doc, err := tool.Detect(data)
			if err != nil {
				return err
			}
			if out == "" {
				text, err := doc.Marshal()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(text))
				return nil
			}
			res, err := export.Export(doc, export.Options{OutPath: out, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", res.Path, res.Size)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the OpenAPI/Swagger document")
	flags.String("out", "", "Output file; format follows the extension (stdout when omitted)")
	flags.Bool("force", false, "Overwrite existing output when set")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an OpenAPI document by calling a live endpoint",
		Long:  "Generate a one-operation OpenAPI document from a live GET endpoint: the response body is sampled into a schema, query parameters become declared parameters, and API-key-looking parameters become a security scheme.",
		Example: strings.TrimSpace(`  wxo-studio generate --url "https://api.weather.example/current.json?q=Toronto&key=abc" --out weather.json
  wxo-studio generate --url "https://api.example.com/v1/search?q=x&token=y" --api-key-param token`),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL, _ := cmd.Flags().GetString("url")
			apiKeyParam, _ := cmd.Flags().GetString("api-key-param")
			out, _ := cmd.Flags().GetString("out")
			force, _ := cmd.Flags().GetBool("force")

			u, err := url.Parse(strings.TrimSpace(rawURL))
			if err != nil || u.Scheme == "" || u.Host == "" {
				return newUsageError("generate: --url must be a full http(s) URL")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := config.NewLogger(cfg.Debug)

			doc, err := generateFromEndpoint(cmd, u, apiKeyParam, log)
			if err != nil {
				return err
			}
			if out == "" {
				text, err := doc.Marshal()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(text))
				return nil
			}
			res, err := export.Export(doc, export.Options{OutPath: out, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", res.Path, res.Size)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("url", "", "Endpoint URL to call, including query parameters")
	flags.String("api-key-param", "", "Query parameter name holding the API key")
	flags.String("out", "", "Output file (stdout when omitted)")
	flags.Bool("force", false, "Overwrite existing output when set")
	return cmd
}

func generateFromEndpoint(cmd *cobra.Command, u *url.URL, apiKeyParam string, log zerolog.Logger) (*tool.Document, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	params := map[string]string{}
	for name, vals := range u.Query() {
		if len(vals) > 0 {
			params[name] = vals[0]
		}
	}

	info := oas.FetchServiceInfo(cmd.Context(), u.Scheme+"://"+u.Host, client, log)
	built := oas.Build(oas.BuildRequest{
		Service:      info,
		URL:          u,
		Method:       http.MethodGet,
		Params:       params,
		ResponseBody: body,
		APIKeyParam:  apiKeyParam,
	})
	return &tool.Document{Kind: tool.KindOpenAPI, OpenAPI: built}, nil
}

func newCurlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curl <file>",
		Short: "Render a curl command for a tool definition's request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return newUsageError(fmt.Sprintf("read %q: %v", args[0], err))
			}
			doc, err := tool.Detect(data)
			if err != nil {
				return err
			}
			if doc.Kind != tool.KindOpenAPI {
				return newUsageError("curl: an OpenAPI document is required")
			}
			apiKey, _ := cmd.Flags().GetString("api-key")
			rec, err := localtest.BuildRequest(doc.OpenAPI, localtest.Options{APIKey: apiKey})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), localtest.RenderCurl(rec, apiKey == ""))
			return nil
		},
	}
	cmd.Flags().String("api-key", "", "Substitute this key instead of the placeholder")
	return cmd
}
