package mailer

import (
	"html"
	"strconv"
	"time"

	"github.com/valyala/fasttemplate"
)

var otpTemplate = fasttemplate.New(`<h3>Notice Approval OTP</h3>
<p>Your OTP for notice approval is: <strong>{{otp}}</strong></p>
<p>This OTP will expire in {{minutes}} minutes.</p>
<p>Approval ID: {{approval_id}}</p>
<p>If you didn't request this, please ignore this email.</p>`, "{{", "}}")

var noticeTemplate = fasttemplate.New(`<h2>{{title}}</h2>
<p><em>From: {{from}}</em></p>
<div>{{content}}</div>`, "{{", "}}")

const OTPSubject = "Your Approval OTP Code"

func RenderOTP(code, approvalID string, ttl time.Duration) string {
	return otpTemplate.ExecuteString(map[string]interface{}{
		"otp":         code,
		"minutes":     strconv.Itoa(int(ttl.Minutes())),
		"approval_id": html.EscapeString(approvalID),
	})
}

// RenderNotice escapes title and sender; content is author-supplied HTML.
func RenderNotice(title, from, content string) string {
	return noticeTemplate.ExecuteString(map[string]interface{}{
		"title":   html.EscapeString(title),
		"from":    html.EscapeString(from),
		"content": content,
	})
}
