// Package email provides the outbound email transport used by the
// authentication workflow. Delivery is best-effort: callers log failures and
// never treat them as fatal.
package email

import (
	"bytes"
	"context"
	"html/template"
)

// Sender delivers a single HTML email. Implementations must respect ctx and
// keep their own retry policy bounded so callers are never blocked
// indefinitely.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// verificationSubject is the subject line of the verification email.
const verificationSubject = "Verify your email"

// verificationTemplate is the body of the verification email. VerifyURL is a
// capability link: following it completes the verification flow.
const verificationTemplate = `<p>Please verify your email by opening this link:</p>
<p><a href="{{.VerifyURL}}">{{.VerifyURL}}</a></p>
<p>The link is valid for {{.ValidFor}}. If you did not sign up, you can ignore this email.</p>
`

var verificationTmpl = template.Must(template.New("verification").Parse(verificationTemplate))

// VerificationParams is passed as data when executing the verification
// email template.
type VerificationParams struct {
	VerifyURL string
	ValidFor  string
}

// VerificationEmail renders the verification email and returns its subject
// and HTML body.
func VerificationEmail(params VerificationParams) (subject, htmlBody string, err error) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, params); err != nil {
		return "", "", err
	}
	return verificationSubject, buf.String(), nil
}
