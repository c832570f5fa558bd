package script

import "log"

// Step is one entry in the call script: a named process and the line the
// agent should say while in it. Lines may carry bracketed placeholders
// such as [customer name] that are filled in before speaking.
type Step struct {
	Process string `json:"Process"`
	Line    string `json:"Line to say"`
}

// FaqEntry is a canned answer the agent may draw on when the customer asks
// something off-script.
type FaqEntry struct {
	Question string `json:"Question"`
	Answer   string `json:"Answer"`
}

// Process names with special meaning to the conversation engine.
const (
	ProcessOpening = "Opening"
	ProcessClosing = "Closing"
	ProcessHandoff = "Handoff"
)

// Supported language codes for SelectLanguage.
const (
	LanguageEnglish = "ENGLISH"
	LanguageTaglish = "TAGLISH"
)

var mainScriptEN = []Step{
	{Process: "Opening", Line: "Hi, may I speak with [customer name]? This is [agent name] from Alpha Insurance. Is this a good time to talk?"},
	{Process: "Purpose of Call", Line: "Great! I'm calling to finalize some details for your new auto insurance policy. I just need to confirm a few things with you, this will only take a moment."},
	{Process: "Verification", Line: "For security, can you please verify your full name and date of birth?"},
	{Process: "Confirmation of Details", Line: "Thank you. I have your address listed as [customer address]. Is that correct?"},
	{Process: "Vehicle Information", Line: "Okay, and the vehicle we are insuring is a [vehicle year, make, model], correct?"},
	{Process: "Closing", Line: "Excellent. Your policy is now active. You'll receive a confirmation email with all the details shortly. Thank you for choosing Alpha Insurance. Have a great day!"},
	{Process: "Handoff", Line: "I understand. Let me connect you to one of our human agents who can better assist you. Please hold."},
}

var faqEN = []FaqEntry{
	{Question: "What is the name of your company?", Answer: "I'm from Alpha Insurance."},
	{Question: "Why are you calling me?", Answer: "I'm calling to finalize some details for your new auto insurance policy to make sure everything is accurate."},
}

var mainScriptTG = []Step{
	{Process: "Opening", Line: "Hi, pwede ko po bang makausap si [customer name]? Ako po si [agent name] from Alpha Insurance. Magandang oras po ba para makipag-usap?"},
	{Process: "Purpose of Call", Line: "Salamat po! Tumatawag po ako para i-finalize ang ilang detalye para sa bago ninyong auto insurance policy. May ilang bagay lang po akong kailangang i-confirm, sandali lang po ito."},
	{Process: "Verification", Line: "Para po sa inyong security, pwede niyo po bang i-verify ang inyong buong pangalan at birthday?"},
	{Process: "Confirmation of Details", Line: "Maraming salamat. Ang address niyo po na naka-lista sa amin ay [customer address]. Tama po ba ito?"},
	{Process: "Vehicle Information", Line: "Okay po, at ang sasakyan na ating ini-insure ay isang [vehicle year, make, model], tama po ba?"},
	{Process: "Closing", Line: "Excellent. Active na po ang inyong policy. Makakatanggap po kayo ng confirmation email na may kumpletong detalye. Maraming salamat sa pagpili sa Alpha Insurance. Have a great day po!"},
	{Process: "Handoff", Line: "Naiintindihan ko po. Sandali lang po at ikokonekta kita sa isa sa aming mga human agent para mas matulungan ka nila. Please hold."},
}

var faqTG = []FaqEntry{
	{Question: "What is the name of your company?", Answer: "Mula po ako sa Alpha Insurance."},
	{Question: "Why are you calling me?", Answer: "Tumatawag po ako para i-finalize ang mga detalye para sa bago ninyong auto insurance policy, para masigurado na tama po ang lahat ng impormasyon."},
}

// SelectLanguage returns the script and FAQ for the given language code.
// Unknown codes fall back to English with a warning; the scripts are fixed
// at compile time and never mutated after selection.
func SelectLanguage(code string) ([]Step, []FaqEntry) {
	switch code {
	case LanguageTaglish:
		return mainScriptTG, faqTG
	case LanguageEnglish, "":
		return mainScriptEN, faqEN
	default:
		log.Printf("script: unsupported language %q, falling back to %s", code, LanguageEnglish)
		return mainScriptEN, faqEN
	}
}

// FindStep returns the step whose process name matches, or false if the
// script has no such process.
func FindStep(steps []Step, process string) (Step, bool) {
	for _, s := range steps {
		if s.Process == process {
			return s, true
		}
	}
	return Step{}, false
}

// IsTerminal reports whether a process name ends the call once spoken.
func IsTerminal(process string) bool {
	return process == ProcessClosing || process == ProcessHandoff
}
