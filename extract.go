package main

import (
	"context"
	"strings"
)

// Accepted reference names / ids per logical field, in priority order. The
// first answer whose fieldRef or fieldId matches wins; earlier refs in the
// list beat later ones even if a later ref appears earlier in the payload.
var (
	featureDescriptionRefs = []string{
		"feature_description", "feature-description", "featuredescription",
		"describe_the_feature", "what_feature", "feature_request",
	}
	usageFrequencyRefs = []string{
		"usage_frequency", "usage-frequency", "how_often", "frequency",
	}
	serviceTypesRefs = []string{
		"service_types", "service-types", "services_used", "which_services",
	}
	userInterestsRefs = []string{
		"user_interests", "user-interests", "interests", "topics_of_interest",
	}
	contactEmailRefs = []string{
		"contact_email", "contact-email", "email", "your_email",
	}
)

// ExtractFields resolves the five logical fields from a structured answer
// list. Fully deterministic. Returns ExtractionError when no answer matches
// the feature-description ref set or the matched answer resolves to an empty
// value.
func ExtractFields(sub RawSubmission) (ExtractedFields, error) {
	fields := ExtractedFields{
		FeatureDescription: findAnswer(sub.Answers, featureDescriptionRefs),
		UsageFrequency:     findAnswer(sub.Answers, usageFrequencyRefs),
		ServiceTypes:       findAnswer(sub.Answers, serviceTypesRefs),
		UserInterests:      findAnswer(sub.Answers, userInterestsRefs),
		ContactEmail:       findAnswer(sub.Answers, contactEmailRefs),
	}
	if strings.TrimSpace(fields.FeatureDescription) == "" {
		return ExtractedFields{}, &ExtractionError{
			Field:  "feature_description",
			Reason: "no answer matched the accepted reference names",
		}
	}
	return fields, nil
}

func findAnswer(answers []Answer, refs []string) string {
	for _, ref := range refs {
		for _, a := range answers {
			if matchesRef(a, ref) {
				if v := answerValue(a); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func matchesRef(a Answer, ref string) bool {
	return normalizeRef(a.FieldRef) == ref || normalizeRef(a.FieldID) == ref
}

func normalizeRef(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// answerValue resolves an answer with a fixed precedence: literal text, else
// email, else single-choice label, else multi-choice labels joined by ", ".
func answerValue(a Answer) string {
	if strings.TrimSpace(a.Text) != "" {
		return a.Text
	}
	if strings.TrimSpace(a.Email) != "" {
		return a.Email
	}
	if strings.TrimSpace(a.Choice) != "" {
		return a.Choice
	}
	if len(a.Choices) > 0 {
		return strings.Join(a.Choices, ", ")
	}
	return ""
}

const parseSystemPrompt = `You extract form answers from notification text.
The text is a form-submission notification containing a feature request.
Identify these fields:
- feature_description: what the user is asking for (required)
- usage_frequency: how often they use the product
- service_types: which services they use (keep as one comma-separated string)
- user_interests: topics they are interested in
- contact_email: their email address if present

Respond with JSON only (no markdown):
{"feature_description": "...", "usage_frequency": "...", "service_types": "...", "user_interests": "...", "contact_email": "..."}
Use an empty string for fields not present in the text.`

type parsedNotification struct {
	FeatureDescription string `json:"feature_description"`
	UsageFrequency     string `json:"usage_frequency"`
	ServiceTypes       string `json:"service_types"`
	UserInterests      string `json:"user_interests"`
	ContactEmail       string `json:"contact_email"`
}

// ParseNotificationText segments raw notification prose into the five logical
// fields using the generator capability. Non-determinism is inherited from
// the capability; callers retry at the call site, never here. The mandatory
// feature-description invariant applies exactly as on the structured path.
func ParseNotificationText(ctx context.Context, gen Generator, text string) (ExtractedFields, error) {
	if strings.TrimSpace(text) == "" {
		return ExtractedFields{}, &ExtractionError{
			Field:  "feature_description",
			Reason: "empty notification text",
		}
	}

	response, err := gen.Generate(ctx, parseSystemPrompt, "Notification text:\n\n"+text)
	if err != nil {
		return ExtractedFields{}, &ExtractionError{
			Field:  "feature_description",
			Reason: "notification parsing capability unavailable",
		}
	}

	var parsed parsedNotification
	if err := decodeModelJSON(response, &parsed); err != nil {
		return ExtractedFields{}, &ExtractionError{
			Field:  "feature_description",
			Reason: "notification parsing produced unusable output",
		}
	}
	if strings.TrimSpace(parsed.FeatureDescription) == "" {
		return ExtractedFields{}, &ExtractionError{
			Field:  "feature_description",
			Reason: "notification text contains no feature description",
		}
	}

	return ExtractedFields{
		FeatureDescription: parsed.FeatureDescription,
		UsageFrequency:     parsed.UsageFrequency,
		ServiceTypes:       parsed.ServiceTypes,
		UserInterests:      parsed.UserInterests,
		ContactEmail:       parsed.ContactEmail,
	}, nil
}
