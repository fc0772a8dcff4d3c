// Package knowledge loads the static disorder knowledge base and answers
// vocabulary questions about it.
//
// The on-disk format is a JSON array of objects:
//
//	[
//	  {
//	    "name": "失眠症",
//	    "desc": "...",
//	    "diag_criteria": "...",
//	    "cure_way": "...",
//	    "symptom": ["入睡困难", "疲劳"]
//	  }
//	]
//
// A KnowledgeBase is loaded once at startup and is never mutated, so it can
// be shared between request goroutines without locking.
package knowledge
