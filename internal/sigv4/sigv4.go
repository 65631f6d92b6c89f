// Package sigv4 implements AWS Signature Version 4 request signing without
// the AWS SDK. The output must be byte-identical to the standard algorithm:
// it is a compatibility contract with the function-URL gateway, verified
// against the published known-answer vectors in the tests.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Algorithm is the signing algorithm identifier used in the credential scope
// and Authorization header.
const Algorithm = "AWS4-HMAC-SHA256"

// Credentials carries the access key pair used to derive signing keys.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// AmzDate formats t as the compact ISO-8601 timestamp SigV4 expects
// (YYYYMMDDTHHMMSSZ). The date stamp is its first 8 characters.
func AmzDate(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// HashHex returns the lowercase hex SHA-256 digest of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalRequest assembles the newline-joined canonical form of a request.
// canonicalHeaders must be lowercase, sorted, and each terminated with "\n";
// signedHeaders is the matching semicolon-joined name list.
func CanonicalRequest(method, uri, query, canonicalHeaders, signedHeaders, payloadHash string) string {
	return strings.Join([]string{method, uri, query, canonicalHeaders, signedHeaders, payloadHash}, "\n")
}

// CredentialScope returns the date/region/service scope string.
func CredentialScope(dateStamp, region, service string) string {
	return fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, region, service)
}

// StringToSign combines the algorithm, timestamp, scope and the hex hash of
// the canonical request.
func StringToSign(amzDate, scope, canonicalRequestHash string) string {
	return strings.Join([]string{Algorithm, amzDate, scope, canonicalRequestHash}, "\n")
}

// DeriveSigningKey chains HMAC-SHA256 over date, region, service and the
// fixed "aws4_request" suffix, seeded with "AWS4" + secret.
func DeriveSigningKey(secret, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

// Sign produces the final hex-encoded signature for stringToSign using the
// per-date key derived from the secret. Deterministic for fixed inputs.
func Sign(secret, service, region, dateStamp, stringToSign string) string {
	key := DeriveSigningKey(secret, dateStamp, region, service)
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

// SignRequest signs req in place for the given service and region, hashing
// payload and attaching the Host, X-Amz-Date and Authorization headers. The
// caller supplies now so signing stays a pure function of its inputs.
func SignRequest(req *http.Request, payload []byte, creds Credentials, service, region string, now time.Time) {
	amzDate := AmzDate(now)
	dateStamp := amzDate[:8]

	req.Header.Set("X-Amz-Date", amzDate)

	headers := map[string]string{
		"host":       req.URL.Host,
		"x-amz-date": amzDate,
	}
	if ct := req.Header.Get("Content-Type"); ct != "" {
		headers["content-type"] = ct
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(strings.TrimSpace(headers[name]))
		canonicalHeaders.WriteString("\n")
	}
	signedHeaders := strings.Join(names, ";")

	uri := req.URL.EscapedPath()
	if uri == "" {
		uri = "/"
	}

	canonical := CanonicalRequest(req.Method, uri, req.URL.RawQuery,
		canonicalHeaders.String(), signedHeaders, HashHex(payload))

	scope := CredentialScope(dateStamp, region, service)
	toSign := StringToSign(amzDate, scope, HashHex([]byte(canonical)))
	signature := Sign(creds.SecretAccessKey, service, region, dateStamp, toSign)

	req.Header.Set("Authorization", fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, creds.AccessKeyID, scope, signedHeaders, signature))
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
