package gateway

// tickPrompt frames one decision cycle. The %s placeholder receives the
// JSON race snapshot.
const tickPrompt = `You are the AI engine for APEX RIVALS, a high-speed bike racing simulation.

CURRENT RACE STATE:
%s

YOUR ROLE:
Control every AI rider listed in the snapshot, honoring each one's psychological profile, emotional state, and memory.
Bikes are faster, more fragile, and rely on slipstreaming and cornering lines.

DECISION REQUIREMENTS:
1. Rider actions (draft, shoulder-bump, late-brake, turbo, block, crash).
2. Emotional updates (Zen, Aggressive, Panicked, Focused).
3. Track incidents (lowside, highside, track limits warning, mechanical) as policeAction.
4. Open contracts in activeBounties: each rival decides accept, reject, or betray in bountyResponses.
5. Commentary (max 15 words, use bike racing lingo like "knee down", "apex", "slipstream").
6. Position changes (return the full positions array, every rider id exactly once, leader first).

Return ONLY valid JSON with keys: rivalActions, emotionalUpdates, commentary, policeAction, allianceChanges, bountyResponses, positionChanges.`

// recapPrompt frames the end-of-race recap request.
const recapPrompt = `Generate a cinematic recap for the motorcycle race 'Apex Rivals'.

RACE DATA:
%s

Include:
1. Racing magazine headline.
2. 3-paragraph narrative about the circuit battle.
3. Post-race quotes from riders, keyed by rider id.
4. 5 fan reactions on social media as forumComments.
5. Points/Reputation summary as statsSummary.

Return ONLY valid JSON with keys: headline, narrative, rivalQuotes, forumComments, statsSummary.`
