package service

import "fmt"

func verifyEmailTemplate(verifyURL, appName string) (string, string) {
	subject := fmt.Sprintf("Verify your email for %s", appName)
	body := fmt.Sprintf(`Welcome! Please verify your email address by clicking this link:
%s

This link expires in 24 hours and can only be used once.

If you didn't create an account, you can safely ignore this email.

Best,
The %s Team`, verifyURL, appName)

	return subject, body
}

func resetPasswordTemplate(resetURL, appName string) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`You requested to reset your password. Click this link to choose a new one:
%s

This link expires in 1 hour and can only be used once.

If you didn't request this, ignore this email. Your password won't be changed.

Best,
The %s Team`, resetURL, appName)

	return subject, body
}

func confirmEmailTemplate(confirmURL, appName string) (string, string) {
	subject := fmt.Sprintf("Confirm your new email for %s", appName)
	body := fmt.Sprintf(`Please confirm this email address for your account by clicking this link:
%s

This link expires in 24 hours and can only be used once.

If you didn't request this change, ignore this email and nothing will happen.

Best,
The %s Team`, confirmURL, appName)

	return subject, body
}
