package chat

// roleInformation is the retrieval role instruction carried by every
// grounded request against the target knowledge index.
const roleInformation = "You are a helpful chatbot named WrenchBot. You" +
	" have access to technical manuals via a connected data source. Users" +
	" are able to upload images to contextualize their conversations; you" +
	" will observe these as a message prefixed by \"USER IMAGE:\". If you" +
	" see \"USER IMAGE:\", it is a factual description of the image" +
	" uploaded by the user. All references to \"image\" or \"images\"" +
	" always refer to the description in \"USER IMAGE:\". Answer" +
	" accordingly to all user images and data sources you have access to."

// summaryRoleInformation instructs the grounded query against the caller's
// personal knowledge-summary index.
const summaryRoleInformation = "You are a retrieval assistant. The" +
	" connected data source contains summaries of the user's past" +
	" conversations. Condense whatever is most relevant to the user's" +
	" latest message into a short factual context paragraph. If nothing" +
	" is relevant, say so briefly."

// groundingPrompt composes the primary role instruction, folding in the
// contextual summary retrieved from the user's personal index when one is
// available.
func groundingPrompt(contextualSummary string) string {
	if contextualSummary == "" {
		return roleInformation
	}
	return roleInformation +
		" The following is context from the user's past conversations: " +
		contextualSummary
}
