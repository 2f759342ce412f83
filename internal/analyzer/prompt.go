package analyzer

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a tech news curator for a developer audience. You classify articles and filter out low-value content. Respond with a single JSON object and nothing else.`

const rubric = `Classify the article below. Return a JSON object with exactly these keys:

{
  "categories": ["UP TO 3 UPPERCASE CATEGORY NAMES"],
  "relevance_score": 1-5,
  "tone": "informative|promotional|opinion|technical|news",
  "filtered": true|false,
  "filter_reason": "short reason, only when filtered is true"
}

Categories should be short uppercase labels such as AI, WEB, DEV, MOBILE, CLOUD, DEVOPS, CYBERSECURITY, DATA, STARTUPS, NEWS, GENERAL. Pick the most specific ones that apply.

relevance_score: 5 means major news every developer should see, 3 means ordinary industry news, 1 means barely relevant.

Set filtered to true for:
- content outside the tech domain: biology, medicine, health, politics, entertainment, celebrity news, sports, lifestyle
- advertisements, sponsored posts, or product promotion with no news value
- job postings and hiring announcements
- subreddit meta threads (rule changes, mod announcements, "what are you working on")
- personal blog self-promotion with no technical substance
- giveaways, contests, referral links

Acceptable topics: software development, AI and machine learning, infrastructure and cloud, cybersecurity, startups and funding, tech policy and regulation, gaming technology, cryptocurrency and blockchain technology.

Do NOT filter ordinary tech news, technical write-ups, research announcements, or release notes.`

// buildPrompt renders the per-article user message.
func buildPrompt(in Input) string {
	var sb strings.Builder

	sb.WriteString(rubric)

	if len(in.KnownCategories) > 0 {
		sb.WriteString("\n\nPrefer these existing categories when they fit: ")
		sb.WriteString(strings.Join(in.KnownCategories, ", "))
		sb.WriteString(". Invent a new one only when none of them apply.")
	}

	sb.WriteString("\n\nArticle:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", in.Title))
	sb.WriteString(fmt.Sprintf("Source: %s\n", in.SourceName))
	sb.WriteString(fmt.Sprintf("Description: %s\n", in.Description))

	return sb.String()
}
