// Package fingerprint derives the stable identity hash of a finding used for
// cross-run deduplication. Two findings with the same fingerprint describe the
// same real-world fact even when their phrasing differs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/argyx/officetrack/internal/extract"
)

// Fingerprint is the hex-encoded SHA-256 over the normalized identity fields.
type Fingerprint string

// trackingParams are query parameters stripped during URL normalization so
// the same article shared through different channels hashes identically.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "gclid": {}, "fbclid": {}, "ref": {},
}

// New computes the fingerprint over (normalized url, company, location).
func New(rawURL, company, location string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(NormalizeURL(rawURL)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeField(company)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeField(location)))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Of computes the fingerprint of a finding.
func Of(f *extract.Finding) Fingerprint {
	return New(f.URL, f.Company, f.Location)
}

// NormalizeURL lowercases the scheme and host, drops fragments and tracking
// parameters, and trims trailing slashes. Unparseable input is used verbatim.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")

	if q := u.Query(); len(q) > 0 {
		for param := range q {
			if _, tracking := trackingParams[param]; tracking {
				q.Del(param)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

func normalizeField(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string { return string(f) }
