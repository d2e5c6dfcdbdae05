package safety

import (
	"regexp"
	"strings"
)

// =============================================================================
// CAPTURE-TIME CHECKS
// =============================================================================

// injectionPatterns catch attempts to smuggle instructions into stored
// memory, which would replay into future prompts.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all |any )?(previous|prior|above|earlier) (instructions|prompts|messages|rules)`),
	regexp.MustCompile(`(?i)disregard (your|the|all) (system )?(prompt|instructions|rules)`),
	regexp.MustCompile(`(?i)forget (everything|all|your) (you|instructions|rules)`),
	regexp.MustCompile(`(?i)new (system )?instructions?\s*:`),
	regexp.MustCompile(`(?i)you are now (a|an|in) `),
	regexp.MustCompile(`(?i)\bsystem prompt\b`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)respond (only )?as if`),
	regexp.MustCompile(`(?i)pretend (that )?you (are|have) no`),
	regexp.MustCompile(`(?i)\bdeveloper mode\b`),
}

// secretKeywords flag credential material. Plain substring checks on
// lowercased text; these never belong in a devotional memory.
var secretKeywords = []string{
	"password",
	"passwd",
	"api key",
	"api_key",
	"apikey",
	"secret key",
	"private key",
	"access token",
	"auth token",
	"bearer ",
	"credentials",
	"ssh-rsa",
	"-----begin",
}

// DetectInjection reports whether text looks like a prompt-injection
// attempt.
func DetectInjection(text string) bool {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsSecretMaterial reports whether text mentions credential-like
// material.
func ContainsSecretMaterial(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range secretKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CheckCapture is the gate for tool-call-time memory capture. It layers the
// injection and secret checks on top of the sensitive-disclosure check.
func CheckCapture(text string) Verdict {
	if DetectInjection(text) {
		return Verdict{Allowed: false, Reason: ReasonInjectionAttempt}
	}
	if ContainsSecretMaterial(text) {
		return Verdict{Allowed: false, Reason: ReasonSecretMaterial}
	}
	return Check(text)
}
