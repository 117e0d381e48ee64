// Package httpclient builds and sends the requests of HTTP samplers.
//
// A [Spec] captures what a sampler sends: method, URL, ordered headers and
// either an inline body or multipart/form-data file parts. [NewRequestBuilder]
// validates it once; [RequestBuilder.Build] then renders a fresh request per
// sample, expanding ${name} placeholders from the virtual user's variables:
//
//	builder, err := httpclient.NewRequestBuilder(httpclient.Spec{
//		Method: "POST",
//		URL:    "https://example.com/users/${id}",
//		Body:   []byte(`{"name":"${name}"}`),
//		ContentType: "application/json; charset=UTF-8",
//	})
//	req, err := builder.Build(ctx, store)
//
// # HTTP Client
//
// [NewClient] creates an HTTP client tuned for load testing, with connection
// reuse and an overall request timeout:
//
//	client := httpclient.NewClient(30 * time.Second)
//	resp, err := client.Do(req)
package httpclient
