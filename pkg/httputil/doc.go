// Package httputil provides the HTTP plumbing shared by remote backends.
//
// [Retry] repeats an operation with exponential backoff while it fails with
// a [RetryableError]. [CheckStatus] classifies response codes: 5xx and 429
// are retryable, everything else outside 2xx is final.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp)
//	})
package httputil
