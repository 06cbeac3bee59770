package httpclient

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// redacted replaces secrets in debug output.
const redacted = "***"

// generateCurlCommand creates a cURL command that replays call.
//
// Multipart parts are rendered as -F arguments. The access key is rendered
// only when withAccessKey is set. It is redacted, as is the Authorization
// header, and file parts are shown with their file name only.
//
// Example output:
//
//	curl -X POST 'https://eu1.dws4.docmosis.com/api/convert' \
//	  -H 'X-Request-Id: 4f1c...' \
//	  -F 'accessKey=***' -F 'outputFormat=pdf' -F 'file=@report.docx'
func generateCurlCommand(req *http.Request, params *Params, withAccessKey bool) string {
	parts := []string{"curl", "-X", req.Method, fmt.Sprintf("'%s'", redactedURL(req))}

	headerKeys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		if k == "Content-Type" {
			continue
		}
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	for _, k := range headerKeys {
		for _, v := range req.Header[k] {
			if k == "Authorization" {
				v = redacted
			}
			parts = append(parts, "-H", shellQuote(k+": "+v))
		}
	}

	if withAccessKey {
		parts = append(parts, "-F", shellQuote(AccessKeyField+"="+redacted))
	}

	if params != nil {
		for _, f := range params.Fields() {
			parts = append(parts, curlFormArgs(f)...)
		}
	}

	return strings.Join(parts, " ")
}

func curlFormArgs(f Field) []string {
	switch v := f.Value.(type) {
	case StringList:
		args := make([]string, 0, 2*len(v))
		for _, s := range v {
			args = append(args, "-F", shellQuote(f.Name+"="+s))
		}
		return args
	case File:
		return []string{"-F", shellQuote(f.Name + "=@" + filepath.Base(v.Path))}
	case Stream:
		return []string{"-F", shellQuote(f.Name + "=@" + v.FileName)}
	case Bytes:
		return []string{"-F", shellQuote(f.Name + "=@" + v.FileName)}
	case textValue:
		return []string{"-F", shellQuote(f.Name + "=" + v.text())}
	default:
		return nil
	}
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// LogCurl writes the cURL equivalent of a call at debug level. params are
// the fields the call's payload was built from.
func (e *Executor) LogCurl(call Call, params *Params) {
	logger := e.config.Logger
	if logger.GetLevel() > zerolog.DebugLevel {
		return
	}

	req, err := http.NewRequest(http.MethodPost, call.URL, nil)
	if err != nil {
		logger.Debug().Err(err).Msg("cannot render curl command")
		return
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	logger.Debug().
		Str("service", call.Service).
		Str("curl", generateCurlCommand(req, params, call.Payload != nil && call.Payload.HasAccessKey)).
		Msg("curl command")
}
