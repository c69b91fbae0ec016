package ai

const FactCheckSystemPrompt = `You are a careful fact-checker. Answer only in the requested format.`

const factCheckTemplate = `You are a professional fact-checker and misinformation analyst. Analyze the following article/text for signs of fake news, misinformation, or unreliable content.

Consider these factors:
1. Factual accuracy and verifiability
2. Source credibility indicators
3. Emotional manipulation or sensationalism
4. Logical consistency and reasoning
5. Use of credible citations or lack thereof
6. Bias, propaganda, or misleading framing
7. Writing quality and professionalism

Article to analyze:
%s

Provide your analysis in this EXACT format:

VERDICT: [LEGITIMATE or FAKE or MISLEADING]
CONFIDENCE: [percentage as number only, e.g., 85]
REASONING: [2-3 sentence explanation of your verdict]
RED_FLAGS: [comma-separated list of concerning elements, or "None" if legitimate]
RECOMMENDATION: [specific action user should take]`
