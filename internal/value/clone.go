package value

// Clone returns a structural deep copy of v. Scalars are immutable and
// returned as-is; arrays and objects are copied recursively so that no
// container is shared between v and the result.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		return CloneArray(val)
	case *Object:
		return CloneObject(val)
	default:
		return v
	}
}

// CloneArray deep-copies an array. A nil array clones to nil.
func CloneArray(arr Array) Array {
	if arr == nil {
		return nil
	}
	out := make(Array, len(arr))
	for i, elem := range arr {
		out[i] = Clone(elem)
	}
	return out
}

// CloneObject deep-copies an object, preserving key order.
func CloneObject(obj *Object) *Object {
	if obj == nil {
		return nil
	}
	out := &Object{
		keys:   make([]string, len(obj.keys)),
		fields: make(map[string]Value, len(obj.fields)),
	}
	copy(out.keys, obj.keys)
	for k, v := range obj.fields {
		out.fields[k] = Clone(v)
	}
	return out
}

// ShallowCopy copies the key order and field map of obj without copying
// the field values themselves.
func ShallowCopy(obj *Object) *Object {
	if obj == nil {
		return NewObject()
	}
	out := &Object{
		keys:   make([]string, len(obj.keys)),
		fields: make(map[string]Value, len(obj.fields)),
	}
	copy(out.keys, obj.keys)
	for k, v := range obj.fields {
		out.fields[k] = v
	}
	return out
}

// Equal reports whether a and b are the same JSON value. Object key order
// is ignored and numbers compare by numeric value.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		an, aerr := CanonicalNumber(av)
		bn, berr := CanonicalNumber(bv)
		return aerr == nil && berr == nil && an == bn
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bElem, ok := bv.fields[k]
			if !ok || !Equal(av.fields[k], bElem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
