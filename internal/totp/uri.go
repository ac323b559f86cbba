package totp

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ProvisioningURI builds the otpauth:// URI that authenticator apps scan
// from the enrollment QR code.
func ProvisioningURI(secret, accountLabel, issuer string) string {
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", strconv.Itoa(Digits))
	params.Set("period", strconv.Itoa(int(Period / time.Second)))

	label := url.PathEscape(issuer + ":" + accountLabel)
	return fmt.Sprintf("otpauth://totp/%s?%s", label, params.Encode())
}
