/*
Package executor issues the HTTP calls made by the seeder and the workload
generator.

# Client

Client wraps a single *http.Client shared by every virtual user:
  - Idle pool and per-host connection limits sized to the VU count
  - Dial, TLS handshake and response header timeouts
  - Optional TLS client configuration (CA, client certificate, insecure)

# Results, Not Errors

Do never returns an error. The load scenario does not react to failures,
so every outcome, including connection refusals and timeouts, is folded
into a types.Result. Status 0 marks a call that got no response.

# Doer

Seeder and workload depend on the Doer interface rather than on Client so
the load engine can record every call on its way through.
*/
package executor
