package png

import "sort"

// registry maps the public chunk codes (PNG 1.2 plus common extensions)
// to one-line descriptions. Codes outside this table are private: the
// carriers the pngme scanner is interested in.
var registry = map[string]string{
	"IHDR": "image header: dimensions, bit depth, color type",
	"PLTE": "palette",
	"IDAT": "image data",
	"IEND": "image trailer",
	"tEXt": "textual data (Latin-1)",
	"zTXt": "compressed textual data",
	"iTXt": "international textual data (UTF-8)",
	"bKGD": "background color",
	"cHRM": "primary chromaticities",
	"dSIG": "digital signature",
	"eXIf": "EXIF metadata",
	"gAMA": "image gamma",
	"hIST": "palette histogram",
	"iCCP": "embedded ICC profile",
	"pHYs": "physical pixel dimensions",
	"sBIT": "significant bits",
	"sPLT": "suggested palette",
	"sRGB": "standard RGB color space",
	"sTER": "stereo image indicator",
	"tIME": "last modification time",
	"tRNS": "transparency",
	"acTL": "animation control (APNG)",
	"fcTL": "frame control (APNG)",
	"fdAT": "frame data (APNG)",
}

var textualCodes = map[string]bool{
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
}

// Registered reports whether code appears in the public chunk registry.
func Registered(code string) bool {
	_, ok := registry[code]
	return ok
}

// IsTextual reports whether code is one of the standard text-carrying
// chunk types (tEXt, zTXt, iTXt).
func IsTextual(code string) bool { return textualCodes[code] }

// Describe returns a one-line description for a registered code, or ""
// for private codes.
func Describe(code string) string { return registry[code] }

// RegisteredTypes returns the registry codes in sorted order.
func RegisteredTypes() []string {
	out := make([]string, 0, len(registry))
	for code := range registry {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
