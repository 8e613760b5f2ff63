// Package blocks parses the text-level block markers embedded in model output.
//
// The generation service emits free-form prose with structured payloads
// fenced by tildes:
//
//	~~~doc:<Label>          a full document body, closed by a ~~~ line
//	~~~image:<description>~~~
//	~~~issues               a JSON array of verifier issues, closed by ~~~
//	~~~summary              the verifier's narrative text, closed by ~~~
//
// plus the guided-mode self-report "✅ <n>/<m> topics covered".
//
// Every parser only extracts fully closed regions, so calling it on a growing
// prefix of a stream never yields a partial document. There is no escape for
// a literal ~~~ inside a document body; such content ends the block early.
package blocks
