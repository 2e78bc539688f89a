package summarize

// acceptPrefix marks a critique verdict that accepts the current candidate.
const acceptPrefix = "ACCEPT"

const draftPrompt = `You are a news analyst. Write a concise summary of the
following article in two to four sentences. Capture the key facts, the main
argument, and any important conclusions. Respond with the summary text only.`

const critiquePrompt = `You are reviewing a draft summary of a news article.
The material below contains the article followed by the draft. If the draft is
accurate, complete, and concise, respond with the single word ACCEPT.
Otherwise respond with a short critique naming what is wrong or missing.
Never respond with ACCEPT followed by a critique.`

const revisePrompt = `You are revising a draft summary of a news article. The
material below contains the article, the current draft, and a critique of it.
Rewrite the summary so the critique no longer applies, keeping it to two to
four sentences. Respond with the revised summary text only.`
