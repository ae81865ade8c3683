/*
Package compiler drives the SysY compilation pipeline.

Process of compilation

Program Text ->
	parse ->
Abstract Syntax Tree (ast) ->
	analyze ->
Checked Syntax Tree ->
	front (emit) ->
Intermediate Representation (ir) ->
	verify ->
	back (select + allocate) ->
Assembly Listing (asm) ->
	text ->
RISC-V Assembly Text

Assembly Listing (asm) ->
	sim ->
Exit Code

*/
package compiler
