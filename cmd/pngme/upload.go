package pngme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/AlekLefebvre/pngme/internal/cache"
	"github.com/AlekLefebvre/pngme/internal/config"
	"github.com/AlekLefebvre/pngme/internal/git"
	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/AlekLefebvre/pngme/pkg/scan"
	"github.com/spf13/cobra"
)

const uploadSchemaVersion = "1"

type uploadEnvelope struct {
	Tool     string         `json:"tool"`
	Version  string         `json:"version"`
	Schema   string         `json:"schema_version"`
	Repo     string         `json:"repo,omitempty"`
	Commit   string         `json:"commit,omitempty"`
	Branch   string         `json:"branch,omitempty"`
	Findings []scan.Finding `json:"findings"`
}

func uploadFindings(rootPath, url, token string, noMeta bool, findings []scan.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	env := uploadEnvelope{Tool: "pngme", Version: version, Schema: uploadSchemaVersion, Findings: findings}
	if !noMeta {
		// Best-effort git metadata
		repo, commit, branch := git.RepoMetadata(rootPath)
		env.Repo, env.Commit, env.Branch = repo, commit, branch
	}
	body, _ := json.Marshal(env)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload status %d", resp.StatusCode)
	}
	return nil
}

// convertFindings adapts internal type to public facade type when needed.
// Currently Finding is a type alias, but keep function for future decoupling.
func convertFindings(in []types.Finding) []scan.Finding {
	out := make([]scan.Finding, len(in))
	for i := range in {
		out[i] = scan.Finding(in[i])
	}
	return out
}

func init() {
	var url, token string
	var noMeta bool
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "POST the last scan's findings to a collection endpoint",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(".")
			res, err := cache.LoadResults(abs)
			if err != nil {
				return fmt.Errorf("no cached scan results; run 'pngme scan' first: %w", err)
			}
			// flags beat the upload section of the file config
			if url == "" || token == "" {
				var gcfg, lcfg config.FileConfig
				if c, err := config.LoadGlobal(); err == nil {
					gcfg = c
				}
				if c, err := config.LoadLocal(abs); err == nil {
					lcfg = c
				}
				uc := lcfg.GetUploadConfig()
				if uc.GetURL() == "" {
					uc = gcfg.GetUploadConfig()
				}
				if url == "" {
					url = uc.GetURL()
				}
				if token == "" {
					token = uc.GetToken()
				}
			}
			if url == "" {
				return fmt.Errorf("no upload URL; pass --url or set upload.url in .pngme.yml")
			}
			if err := uploadFindings(abs, url, token, noMeta, convertFindings(res.Findings)); err != nil {
				return err
			}
			fmt.Printf("Uploaded %d findings to %s\n", len(res.Findings), url)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "endpoint to POST the findings envelope to")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for upload auth")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "do not include repo/commit/branch in the envelope")
	rootCmd.AddCommand(cmd)
}
