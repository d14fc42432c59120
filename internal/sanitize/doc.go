// Package sanitize deduplicates the collections of an exported application
// schema document.
//
// An application schema looks like:
//
//	{
//	  "name": "...",
//	  "versions": [
//	    {
//	      "objects": [{"key": "object_1", "fields": [{"key": "field_1"}, ...]}, ...],
//	      "scenes":  [{"key": "scene_1",  "views":  [{"key": "view_1"},  ...]}, ...],
//	      ...
//	    }
//	  ]
//	}
//
// Only versions[0] is read; the sanitized document carries exactly that one
// version. Everything outside the configured collections is passed through
// unchanged.
package sanitize
