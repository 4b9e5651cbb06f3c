// Package http serves the folder API and, for stores without presigned URLs
// of their own, the signed object endpoints.
//
// # Routes
//
//	POST   /api/folders                          create a folder
//	GET    /api/folders/{id}                     folder details
//	POST   /api/folders/{id}/verify              check a folder password
//	GET    /api/folders/{id}/images              list images with read URLs
//	POST   /api/folders/{id}/uploads             request an upload URL
//	POST   /api/folders/{id}/images?name=        upload the raw request body
//	POST   /api/folders/{id}/images/complete     record a direct upload
//	DELETE /api/folders/{id}/images/{name}       delete an image
//	POST   /api/folders/{id}/recount             recompute the image count
//	GET    /objects/{key}                        signed read
//	PUT    /objects/{key}                        signed upload
//	GET    /healthz                              liveness
//
// Folder passwords travel in the JSON body or in the X-Folder-Password header.
// Errors are JSON objects of the form {"error": code, "message": text};
// rate limited responses carry Retry-After.
//
// # Usage
//
//	verifier := snapsi.NewURLVerifier(secrets)
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Objects:  fsStore,
//	    Verifier: verifier,
//	}, service)
//	srv := &stdhttp.Server{Addr: ":5708", Handler: handler.Router()}
package http
