// Package groundextract extracts structured data from unstructured text
// using LLM prompting, and maps every extracted value back to its exact
// character offset in the original document.
//
// # Problem statement
//
// Asking a model to extract structured data is easy; trusting the
// result is not. A model can hallucinate a plausible-looking value that
// never appeared in the source, silently truncate a long document
// instead of processing all of it, or drop a field it was supposed to
// extract without saying so. groundextract addresses this by:
//
//   - Grounding every extraction in the source: after inference, each
//     extracted string is located (exactly, or by fuzzy word-overlap) in
//     the original text, and the resulting character interval travels
//     with the extraction so downstream code can highlight or verify it.
//   - Chunking long documents without losing content: several chunking
//     strategies split a document while preserving enough bookkeeping to
//     reconstruct the source from its chunks, so a chunk boundary never
//     silently drops text.
//   - Bounded, bulkhead concurrency: chunks are processed with a capped
//     number of in-flight inference calls, and one chunk's failure never
//     aborts the rest of the request — it is recorded and returned
//     alongside whatever did succeed.
//   - Optional multi-pass refinement: chunks that under-yield extractions
//     on a first pass can be reprocessed at a different sampling
//     temperature and the results merged by consensus.
//
// # Basic usage
//
//	examples := []groundextract.Example{
//	    groundextract.NewExample(
//	        "Acme Corp hired Jane Doe as CFO on March 3, 2024.",
//	        groundextract.ExampleExtraction{Class: "organization", Text: "Acme Corp"},
//	        groundextract.ExampleExtraction{Class: "person", Text: "Jane Doe"},
//	        groundextract.ExampleExtraction{Class: "date", Text: "March 3, 2024"},
//	    ),
//	}
//
//	an, err := groundextract.NewAnnotator(
//	    "Extract every named entity mentioned in the document.",
//	    examples,
//	    groundextract.WithProvider(myProvider),
//	    groundextract.WithMaxWorkers(8),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc := groundextract.NewDocument(sourceText, "", nil)
//	result, err := an.Annotate(ctx, doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, ext := range result.Extractions {
//	    fmt.Printf("%s: %q at [%d,%d) (%s)\n",
//	        ext.Class, ext.Text, ext.Interval.Start, ext.Interval.End, ext.Status)
//	}
//
// # Providers
//
// Inference is abstracted behind the Provider interface; concrete
// adapters for Gemini, Ollama, and OpenAI-compatible APIs live in the
// providers subpackage, alongside a deterministic in-memory fake for
// tests.
//
// # Multi-pass extraction
//
// Setting WithMultipass(true, n) and calling RunMultiPass instead of
// Annotate reprocesses chunks that produced fewer extractions than
// expected, at a decaying sampling temperature, merging results across
// passes.
package groundextract
