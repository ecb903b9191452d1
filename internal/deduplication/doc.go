// Package deduplication finds likely duplicate issues and pull requests in a
// repository's open backlog.
//
// # Pipeline
//
// For one corpus of documents, Engine.Analyze:
//
//  1. Embeds every document's text concurrently. A failed or empty embedding
//     removes only that document from similarity retrieval.
//  2. Builds an in-memory cosine index over the embedded documents.
//  3. For each document, retrieves up to five other documents scoring
//     strictly above 0.6, ordered by score with ties in corpus order.
//  4. Justifies each candidate with lexical and temporal evidence
//     (title and body token overlap, creation time proximity).
//  5. Asks the classifier for a verdict on the top three candidates. If the
//     classifier fails, times out, or replies with an invalid verdict, a
//     fallback verdict is derived from the mean candidate similarity.
//  6. Reports every document that had candidates, sorted by confidence.
//
// Documents without candidates are suppressed, not reported as "not
// duplicate".
//
// # Fallback
//
// The fallback confidence is round(mean(score*100) * 0.8). The action is
// chosen from that dampened confidence, while the duplicate flag uses the
// undampened mean:
//
//	confidence > 80  mark_duplicate
//	confidence > 60  review_required
//	otherwise        not_duplicate
//
// A single 0.95 match therefore yields confidence 76 and review_required.
//
// # Configuration
//
// All thresholds live in Config. See DefaultConfig() for default values and
// ConfigFromEnv() for the REPOLENS_DEDUP_* environment variables.
//
// # Usage
//
//	provider, _ := embedding.NewOpenAIProvider(&embedding.OpenAIConfig{})
//	classifier, _ := ai.NewClassifier(&ai.Config{Provider: ai.ProviderAnthropic})
//
//	engine, err := deduplication.NewEngine(provider, classifier, deduplication.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	report, err := engine.Analyze(ctx, docs)
//	if err != nil {
//	    return err // fatal input error, no results
//	}
//	for _, action := range report.Actions() {
//	    fmt.Println(action.DocumentID, action.SuggestedAction, action.RelatedDocumentID)
//	}
package deduplication
