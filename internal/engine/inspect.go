package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/AlekLefebvre/pngme/internal/payload"
	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/AlekLefebvre/pngme/internal/validate"
	"github.com/AlekLefebvre/pngme/internal/vpath"
	"github.com/AlekLefebvre/pngme/pkg/png"
)

// Rule identifiers attached to findings.
const (
	RuleTargetType   = "target-type"
	RulePrivateText  = "private-text-chunk"
	RulePrivate      = "private-chunk"
	RuleStandardText = "text-chunk"
	RuleAfterEnd     = "after-iend"
	RuleMalformed    = "malformed"

	// RuleStructure marks registered structural chunks in container
	// inventories. Scans never emit it, so it is absent from RuleIDs.
	RuleStructure = "structure"
)

// RuleIDs returns the rule identifiers scans can produce, for CLI filters
// and documentation.
func RuleIDs() []string {
	return []string{
		RuleTargetType,
		RulePrivateText,
		RulePrivate,
		RuleStandardText,
		RuleAfterEnd,
		RuleMalformed,
	}
}

const previewLimit = 80

// inspectContainer applies the chunk rules to one container and returns its
// findings. Data without the signature yields nothing unless the file claims
// a container extension, which is reported as malformed.
func inspectContainer(path string, data []byte, cfg Config) []types.Finding {
	if !png.HasSignature(data) {
		if isPNGName(leafName(path)) {
			return []types.Finding{{
				Path:       path,
				Rule:       RuleMalformed,
				Severity:   types.SevMed,
				Confidence: 0.7,
				Context:    "missing container signature",
			}}
		}
		return nil
	}

	targets := targetSet(cfg.TargetTypes)
	var out []types.Finding
	off := int64(len(png.Signature))
	sawEnd := false
	for idx := 0; int64(len(data)) > off; idx++ {
		c, n, err := png.DecodeChunk(data[off:])
		if err != nil {
			out = append(out, types.Finding{
				Path:       path,
				Index:      idx,
				Offset:     off,
				Rule:       RuleMalformed,
				Severity:   types.SevMed,
				Confidence: 0.7,
				Context:    err.Error(),
			})
			// framing is unreliable past a decode error
			break
		}
		out = append(out, chunkFindings(path, idx, off, c, sawEnd, targets, cfg)...)
		if c.Type().String() == "IEND" {
			sawEnd = true
		}
		off += int64(n)
	}
	return out
}

func chunkFindings(path string, idx int, off int64, c *png.Chunk, afterEnd bool, targets map[string]struct{}, cfg Config) []types.Finding {
	t := c.Type()
	code := t.String()
	data := c.Data()

	mk := func(rule string, sev types.Severity, conf float64) types.Finding {
		return types.Finding{
			Path:       path,
			Index:      idx,
			Type:       code,
			Offset:     off,
			Length:     c.Length(),
			CRC:        c.CRC(),
			Rule:       rule,
			Severity:   sev,
			Confidence: conf,
			Preview:    preview(data),
			Metadata:   chunkMetadata(t, data),
		}
	}

	var out []types.Finding
	if _, hit := targets[code]; hit {
		out = append(out, mk(RuleTargetType, types.SevHigh, 1))
	}
	if afterEnd {
		// position is the strongest signal; skip the structural rules
		out = append(out, mk(RuleAfterEnd, types.SevHigh, 0.85))
		return out
	}
	if !png.Registered(code) {
		if len(data) > 0 && validate.MostlyPrintable(data) {
			f := mk(RulePrivateText, types.SevHigh, 0.9)
			if k := validate.StructuredKind(string(data)); k != "" {
				f.Confidence = 0.95
				f.Context = k + " payload"
				if keys := payload.SensitiveKeys(payload.Fields(k, data)); len(keys) > 0 {
					f.Metadata["sensitive_keys"] = strings.Join(keys, ",")
				}
			}
			out = append(out, f)
		} else {
			f := mk(RulePrivate, types.SevMed, 0.6)
			if validate.ShannonEntropy(data) > 7.2 {
				f.Confidence = 0.7
				f.Context = "high-entropy payload"
			}
			out = append(out, f)
		}
		return out
	}
	if cfg.IncludeStandardText && png.IsTextual(code) {
		out = append(out, mk(RuleStandardText, types.SevLow, 0.4))
	}
	return out
}

// InventoryContainer lists every chunk of the container in raw as one
// finding per chunk, for single-file browsing. Suspicious chunks carry the
// same rule ids a scan would produce; registered structural chunks carry
// RuleStructure. A decode error ends the list with a malformed finding.
func InventoryContainer(path string, raw []byte) ([]types.Finding, error) {
	if !png.HasSignature(raw) {
		return nil, fmt.Errorf("%s: %w", path, png.ErrBadSignature)
	}
	var out []types.Finding
	off := int64(len(png.Signature))
	sawEnd := false
	for idx := 0; int64(len(raw)) > off; idx++ {
		c, n, err := png.DecodeChunk(raw[off:])
		if err != nil {
			out = append(out, types.Finding{
				Path:       path,
				Index:      idx,
				Offset:     off,
				Rule:       RuleMalformed,
				Severity:   types.SevMed,
				Confidence: 0.7,
				Context:    err.Error(),
			})
			break
		}
		out = append(out, inventoryFinding(path, idx, off, c, sawEnd))
		if c.Type().String() == "IEND" {
			sawEnd = true
		}
		off += int64(n)
	}
	return out, nil
}

func inventoryFinding(path string, idx int, off int64, c *png.Chunk, afterEnd bool) types.Finding {
	code := c.Type().String()
	data := c.Data()
	f := types.Finding{
		Path:       path,
		Index:      idx,
		Type:       code,
		Offset:     off,
		Length:     c.Length(),
		CRC:        c.CRC(),
		Rule:       RuleStructure,
		Severity:   types.SevLow,
		Confidence: 1,
		Preview:    preview(data),
		Metadata:   chunkMetadata(c.Type(), data),
	}
	switch {
	case afterEnd:
		f.Rule, f.Severity, f.Confidence = RuleAfterEnd, types.SevHigh, 0.85
	case !png.Registered(code) && len(data) > 0 && validate.MostlyPrintable(data):
		f.Rule, f.Severity, f.Confidence = RulePrivateText, types.SevHigh, 0.9
	case !png.Registered(code):
		f.Rule, f.Severity, f.Confidence = RulePrivate, types.SevMed, 0.6
	case png.IsTextual(code):
		f.Rule, f.Severity, f.Confidence = RuleStandardText, types.SevLow, 0.4
	}
	if desc := png.Describe(code); desc != "" {
		f.Metadata["description"] = desc
	}
	return f
}

// preview renders a payload for display: text as-is (flattened and
// truncated), binary as a size and entropy summary.
func preview(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if validate.MostlyPrintable(data) {
		s := flatten(string(data))
		if len(s) > previewLimit {
			cut := previewLimit
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			s = s[:cut] + "..."
		}
		return s
	}
	return fmt.Sprintf("%d bytes, entropy %.2f", len(data), validate.ShannonEntropy(data))
}

func flatten(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return '.'
		}
		return r
	}, s)
}

func chunkMetadata(t png.ChunkType, data []byte) map[string]string {
	m := map[string]string{
		"critical":     strconv.FormatBool(t.IsCritical()),
		"public":       strconv.FormatBool(t.IsPublic()),
		"safe_to_copy": strconv.FormatBool(t.IsSafeToCopy()),
	}
	if len(data) > 0 {
		m["entropy"] = strconv.FormatFloat(validate.ShannonEntropy(data), 'f', 2, 64)
	}
	return m
}

func targetSet(codes []string) map[string]struct{} {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

func leafName(path string) string {
	parts := vpath.Parse(path)
	if len(parts) == 0 {
		return path
	}
	return parts[len(parts)-1]
}
