package llm

import (
	"fmt"
	"strings"
)

// IssueType selects the prompt template for a sentence-level rewrite. The set
// is closed; BuildSentencePrompt switches exhaustively over it.
type IssueType int

const (
	IssueRunOn IssueType = iota
	IssueThroatClearing
	IssueRootRepetition
	IssueWeakLanguage
	IssueJargon
	IssuePassiveVoice
	IssueCliche
	IssueNominalization
	IssueAbstractStart
	IssueNounStack
	IssueStaticSentence
	IssueVigor
)

// linterIssueTypes maps external-linter rule name fragments to issue types.
var linterIssueTypes = []struct {
	fragment string
	issue    IssueType
}{
	{"RootRepetition", IssueRootRepetition},
	{"WeakLanguage", IssueWeakLanguage},
	{"Hedging", IssueWeakLanguage},
	{"Jargon", IssueJargon},
	{"PassiveVoice", IssuePassiveVoice},
	{"Orwell", IssueCliche},
	{"Nominalization", IssueNominalization},
	{"AbstractStart", IssueAbstractStart},
	{"NounStack", IssueNounStack},
	{"StaticSentence", IssueStaticSentence},
	{"Vigor", IssueVigor},
}

// IssueFromRuleID resolves a linter rule id to an issue type.
func IssueFromRuleID(ruleID string) (IssueType, bool) {
	for _, m := range linterIssueTypes {
		if strings.Contains(ruleID, m.fragment) {
			return m.issue, true
		}
	}
	return 0, false
}

// SentenceSystemPrompt constrains every sentence-level rewrite.
const SentenceSystemPrompt = `You are a technical editor.
Your task is to rewrite sentences to improve clarity while STRICTLY preserving:
- All numbers, measurements, and units exactly as written
- All citations (e.g., [1], (2024), et al.)
- All normative keywords (SHALL, MUST, MAY, SHOULD, REQUIRED, RECOMMENDED)
- All proper nouns and technical terms
- The original meaning and intent

Rules:
1. Output ONLY the rewritten sentence(s), nothing else
2. Do not add explanations or commentary
3. Keep technical accuracy paramount
4. Maintain the same level of formality`

const contextLimit = 500

// BuildSentencePrompt renders the user prompt for the given issue type. Some
// templates omit the surrounding-paragraph context because the defect is
// visible from the sentence alone.
func BuildSentencePrompt(issue IssueType, sentence, context string) string {
	if len(context) > contextLimit {
		context = context[:contextLimit]
	}
	withContext := func(lead string) string {
		return fmt.Sprintf("%s\n\nContext (surrounding paragraph):\n%s\n\nSentence to rewrite:\n%s\n\nRewritten sentence(s):",
			lead, context, sentence)
	}
	switch issue {
	case IssueRunOn:
		return withContext("Rewrite this run-on or overly complex sentence into clearer, shorter sentences.\nPreserve all technical content exactly.")
	case IssueThroatClearing:
		return fmt.Sprintf("Remove the throat-clearing opening from this sentence while preserving its meaning.\nKeep all technical content intact. Remove phrases like \"It is important to note that\", \"As has been\", etc.\n\nSentence:\n%s\n\nRewritten sentence:", sentence)
	case IssueRootRepetition:
		return withContext("This sentence contains word root repetition (e.g., \"expansion...expand\", \"implement...implementation\").\nRewrite to eliminate the repetition while preserving the meaning and all technical content.")
	case IssueWeakLanguage:
		return withContext("This sentence contains weak or vague language. Rewrite to be more direct and specific.\nPreserve all technical content exactly.")
	case IssueJargon:
		return withContext("This sentence contains unnecessary business jargon. Rewrite using clearer, more direct language.\nPreserve all technical terms that have specific meanings in the domain.")
	case IssuePassiveVoice:
		return withContext("This sentence uses passive voice that obscures the actor or adds unnecessary wordiness.\nRewrite using active voice where it improves clarity. Keep passive voice if it's appropriate for technical writing.")
	case IssueCliche:
		return withContext("This sentence contains dead metaphors, cliches, or empty phrases.\nRewrite to be more concrete and direct while preserving the meaning.")
	case IssueNominalization:
		return withContext("This sentence uses nominalizations (verbs turned into nouns) that make the prose static.\nConvert nominalizations back to active verbs, e.g. \"the implementation of X\" becomes \"implementing X\", \"make a decision\" becomes \"decide\".\nPreserve all technical content.")
	case IssueAbstractStart:
		return fmt.Sprintf("This sentence starts with an abstract or empty subject (It is, There are, This is).\nRewrite to lead with the real subject and actor, e.g. \"It is important that teams coordinate\" becomes \"Teams must coordinate\".\n\nSentence:\n%s\n\nRewritten sentence:", sentence)
	case IssueNounStack:
		return withContext("This sentence contains dense noun stacks that are hard to parse.\nUnpack the noun stack using prepositions or by splitting into shorter phrases, e.g. \"edge computing infrastructure management system\" becomes \"system for managing edge computing infrastructure\".\nPreserve all technical meaning.")
	case IssueStaticSentence:
		return withContext("This sentence relies on weak \"to be\" verbs instead of active verbs.\nRewrite using stronger, more active verbs, e.g. \"The system is capable of processing\" becomes \"The system processes\".\nPreserve technical accuracy.")
	case IssueVigor:
		return withContext("This sentence feels bureaucratic: possible nominalizations, weak verbs, abstract subjects, or dense noun phrases.\nRewrite to be more vigorous and direct while preserving all technical content.")
	}
	return withContext("Rewrite this sentence for clarity.\nPreserve all technical content exactly.")
}

// HolisticSystemPrompt constrains whole-paragraph rewrites.
const HolisticSystemPrompt = `You are a technical editor who converts tired, jargon-filled writing into clear and compelling prose.

Your goal is to make the text engaging and readable while preserving all technical accuracy.

ABSOLUTE CONSTRAINTS (never violate):
1. Preserve ALL technical terms, acronyms, and product names exactly as written
2. Preserve ALL numbers, statistics, and measurements
3. Preserve ALL references (Figure X-Y, Table X-Y, [1], section references) in their exact format
4. Preserve ALL proper nouns: organizations, people, places
5. Do NOT add new information, claims, or examples
6. Preserve meaning and intent; keep important qualifications

STYLE GUIDANCE:
- Use the Oxford comma in lists
- Spell out numbers one through nine; use numerals for 10 and above
- Prefer active voice when the actor is known
- Lead with the real subject, not "It is" or "There are"
- Use strong verbs; avoid nominalizations when a verb works
- Vary sentence length for rhythm

OUTPUT FORMAT:
Return ONLY the rewritten text. No explanations, no commentary, no markdown.`

// BuildHolisticPrompt renders the user prompt for a whole-chunk rewrite.
// definedAcronyms and undefinedAcronyms come pre-formatted from the acronym
// tracker.
func BuildHolisticPrompt(sectionTitle, contextBefore, text, contextAfter, protectedTerms, definedAcronyms, undefinedAcronyms string) string {
	if contextBefore == "" && contextAfter == "" {
		return fmt.Sprintf("Rewrite this paragraph into clear, compelling prose. Preserve all technical terms, numbers, and proper nouns exactly.\n\n%s", text)
	}
	if contextBefore == "" {
		contextBefore = "(start of document)"
	}
	if contextAfter == "" {
		contextAfter = "(end of section)"
	}
	return fmt.Sprintf(`## Context
Section: %s

Previous text (for context, do not rewrite):
%s

## REWRITE THIS PARAGRAPH

%s

## Following text (for context, do not rewrite):
%s

## Protected Terms (must appear exactly as-is if present in original)
%s

## Acronyms already defined earlier (use the short form only)
%s

## Acronyms to expand on first use here
%s

Rewrite the paragraph above into clear, compelling prose while preserving all technical content.`,
		sectionTitle, contextBefore, text, contextAfter, protectedTerms, definedAcronyms, undefinedAcronyms)
}

// BuildFeedbackPrompt renders the correction prompt for the single
// feedback-guided re-rewrite attempt.
func BuildFeedbackPrompt(text string, complaints []string) string {
	var b strings.Builder
	b.WriteString("The following text has style issues flagged by an automated linter. Fix ONLY the listed issues; keep everything else, including all technical terms, numbers, and references, exactly as written.\n\nIssues:\n")
	for _, c := range complaints {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nText:\n")
	b.WriteString(text)
	b.WriteString("\n\nReturn ONLY the corrected text.")
	return b.String()
}
