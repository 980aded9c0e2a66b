// Package pieskieo provides a Go client for the Pieskieo data service:
// vector similarity search, documents, rows, graph edges and SQL over HTTP.
//
// The package does request construction, payload normalization and response
// decoding only. Every successful response is a {"data": ...} envelope;
// anything outside 2xx comes back as a *StatusError.
//
// # Blocking client
//
//	client, _ := pieskieo.New("http://localhost:8000", pieskieo.WithTimeout(5*time.Second))
//	defer client.Close()
//
//	id, _ := client.PutVector(ctx, pieskieo.VectorInput{
//	    Vector: []float32{0.1, 0.2, 0.3},
//	    Meta:   map[string]string{"lang": "en"},
//	})
//	hits, _ := client.Search(ctx, pieskieo.VectorSearchRequest{Query: []float32{0.1, 0.2, 0.3}, K: 5})
//
// # Asynchronous client
//
// AsyncClient has the same methods; each returns a Future:
//
//	ac, _ := pieskieo.NewAsync("http://localhost:8000")
//	defer ac.Close()
//
//	f1 := ac.PutDoc(ctx, pieskieo.DocInput{Data: map[string]any{"title": "a"}})
//	f2 := ac.PutDoc(ctx, pieskieo.DocInput{Data: map[string]any{"title": "b"}})
//	id1, err := f1.Await(ctx)
//	id2, err := f2.Await(ctx)
//
// # Typed collections
//
//	type Article struct {
//	    Title string `json:"title"`
//	    Lang  string `json:"lang"`
//	}
//
//	articles := pieskieo.NewCollection[Article](client, "", "articles")
//	id, _ := articles.Put(ctx, uuid.Nil, Article{Title: "hello", Lang: "en"})
//	hits, _ := articles.Query().Where("lang", "en").Limit(20).Do(ctx)
package pieskieo
