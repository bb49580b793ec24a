// Package pokedex provides an embedded Go client for the Pokémon
// question-answering engine. It wires the retriever, vector store and model
// providers in-process, without running the HTTP server.
//
//	client, _ := pokedex.New(ctx,
//	    pokedex.WithGemini(apiKey, "text-embedding-004", "gemini-2.0-flash"),
//	)
//	_ = client.Load(ctx, records)
//	answer, _ := client.Query(ctx, "Which Pokémon are legendary?")
//	fmt.Println(answer.Answer, answer.SearchType)
package pokedex
