package rustgen

// dynPreamble is the runtime value type for expressions whose type could
// not be resolved. Dict keeps insertion order as a pair list so the enum
// stays hashable.
const dynPreamble = `#[derive(Debug, Clone, Default)]
pub enum DynValue {
    #[default]
    None,
    Int(i64),
    Float(f64),
    Str(String),
    Bool(bool),
    List(Vec<DynValue>),
    Dict(Vec<(DynValue, DynValue)>),
    Tuple(Vec<DynValue>),
}

impl DynValue {
    pub fn as_i64(&self) -> i64 {
        match self {
            DynValue::Int(i) => *i,
            DynValue::Float(f) => *f as i64,
            DynValue::Bool(b) => *b as i64,
            DynValue::Str(s) => s.trim().parse().unwrap_or(0),
            _ => 0,
        }
    }

    pub fn as_f64(&self) -> f64 {
        match self {
            DynValue::Int(i) => *i as f64,
            DynValue::Float(f) => *f,
            DynValue::Bool(b) => *b as i64 as f64,
            DynValue::Str(s) => s.trim().parse().unwrap_or(0.0),
            _ => 0.0,
        }
    }

    pub fn as_bool(&self) -> bool {
        self.is_truthy()
    }

    pub fn as_str(&self) -> &str {
        match self {
            DynValue::Str(s) => s,
            _ => "",
        }
    }

    pub fn as_array(&self) -> Option<&Vec<DynValue>> {
        match self {
            DynValue::List(v) | DynValue::Tuple(v) => Some(v),
            _ => None,
        }
    }

    pub fn as_object(&self) -> Option<&Vec<(DynValue, DynValue)>> {
        match self {
            DynValue::Dict(d) => Some(d),
            _ => None,
        }
    }

    pub fn as_list(&self) -> &[DynValue] {
        match self {
            DynValue::List(v) | DynValue::Tuple(v) => v,
            _ => &[],
        }
    }

    pub fn to_list(&self) -> Vec<DynValue> {
        match self {
            DynValue::List(v) | DynValue::Tuple(v) => v.clone(),
            DynValue::Dict(d) => d.iter().map(|(k, _)| k.clone()).collect(),
            DynValue::Str(s) => s.chars().map(|c| DynValue::Str(c.to_string())).collect(),
            _ => Vec::new(),
        }
    }

    pub fn into_option(self) -> Option<DynValue> {
        match self {
            DynValue::None => None,
            v => Some(v),
        }
    }

    pub fn len(&self) -> usize {
        match self {
            DynValue::Str(s) => s.chars().count(),
            DynValue::List(v) | DynValue::Tuple(v) => v.len(),
            DynValue::Dict(d) => d.len(),
            _ => 0,
        }
    }

    pub fn is_empty(&self) -> bool {
        self.len() == 0
    }

    pub fn is_truthy(&self) -> bool {
        match self {
            DynValue::None => false,
            DynValue::Int(i) => *i != 0,
            DynValue::Float(f) => *f != 0.0,
            DynValue::Bool(b) => *b,
            _ => !self.is_empty(),
        }
    }

    pub fn contains(&self, x: &DynValue) -> bool {
        match (self, x) {
            (DynValue::Str(s), DynValue::Str(sub)) => s.contains(sub.as_str()),
            (DynValue::Dict(d), _) => d.iter().any(|(k, _)| k == x),
            _ => self.as_list().contains(x),
        }
    }

    pub fn get_item(&self, key: &DynValue) -> DynValue {
        match self {
            DynValue::Dict(d) => d.iter().find(|(k, _)| k == key).map(|(_, v)| v.clone()).unwrap_or_default(),
            DynValue::List(v) | DynValue::Tuple(v) => {
                let i = key.as_i64();
                let i = if i < 0 { v.len() as i64 + i } else { i };
                v.get(i as usize).cloned().unwrap_or_default()
            }
            DynValue::Str(s) => {
                let i = key.as_i64();
                let n = s.chars().count() as i64;
                let i = if i < 0 { n + i } else { i };
                s.chars().nth(i as usize).map(|c| DynValue::Str(c.to_string())).unwrap_or_default()
            }
            _ => DynValue::None,
        }
    }

    pub fn set_item(&mut self, key: DynValue, value: DynValue) {
        match self {
            DynValue::Dict(d) => match d.iter_mut().find(|(k, _)| *k == key) {
                Some(slot) => slot.1 = value,
                None => d.push((key, value)),
            },
            DynValue::List(v) => {
                let i = key.as_i64();
                let i = if i < 0 { v.len() as i64 + i } else { i };
                if let Some(slot) = v.get_mut(i as usize) {
                    *slot = value;
                }
            }
            _ => {}
        }
    }

    pub fn get_attr(&self, name: &str) -> DynValue {
        self.get_item(&DynValue::from(name))
    }

    pub fn call_method(&mut self, method: &str, args: Vec<DynValue>) -> DynValue {
        match (method, self) {
            ("append", DynValue::List(v)) => {
                v.extend(args);
                DynValue::None
            }
            ("pop", DynValue::List(v)) => v.pop().unwrap_or_default(),
            ("get", DynValue::Dict(d)) => {
                let key = args.first().cloned().unwrap_or_default();
                match d.iter().find(|(k, _)| *k == key) {
                    Some((_, v)) => v.clone(),
                    None => args.get(1).cloned().unwrap_or_default(),
                }
            }
            ("keys", DynValue::Dict(d)) => DynValue::List(d.iter().map(|(k, _)| k.clone()).collect()),
            ("values", DynValue::Dict(d)) => DynValue::List(d.iter().map(|(_, v)| v.clone()).collect()),
            ("items", DynValue::Dict(d)) => DynValue::List(d.iter().map(|(k, v)| DynValue::Tuple(vec![k.clone(), v.clone()])).collect()),
            ("upper", DynValue::Str(s)) => DynValue::Str(s.to_uppercase()),
            ("lower", DynValue::Str(s)) => DynValue::Str(s.to_lowercase()),
            ("strip", DynValue::Str(s)) => DynValue::Str(s.trim().to_string()),
            ("split", DynValue::Str(s)) => DynValue::List(s.split_whitespace().map(DynValue::from).collect()),
            ("copy", v) => v.clone(),
            (m, _) => unimplemented!("{} on dynamic value", m),
        }
    }
}

impl PartialEq for DynValue {
    fn eq(&self, other: &Self) -> bool {
        match (self, other) {
            (DynValue::None, DynValue::None) => true,
            (DynValue::Str(a), DynValue::Str(b)) => a == b,
            (DynValue::List(a), DynValue::List(b)) | (DynValue::Tuple(a), DynValue::Tuple(b)) => a == b,
            (DynValue::Dict(a), DynValue::Dict(b)) => a.len() == b.len() && a.iter().all(|p| b.contains(p)),
            (DynValue::Float(_), _) | (_, DynValue::Float(_)) => self.as_f64().to_bits() == other.as_f64().to_bits(),
            (DynValue::Int(_) | DynValue::Bool(_), DynValue::Int(_) | DynValue::Bool(_)) => self.as_i64() == other.as_i64(),
            _ => false,
        }
    }
}

impl Eq for DynValue {}

impl std::hash::Hash for DynValue {
    fn hash<H: std::hash::Hasher>(&self, state: &mut H) {
        match self {
            DynValue::None => 0u8.hash(state),
            DynValue::Int(_) | DynValue::Bool(_) => self.as_i64().hash(state),
            DynValue::Float(f) if f.fract() == 0.0 => (*f as i64).hash(state),
            DynValue::Float(f) => f.to_bits().hash(state),
            DynValue::Str(s) => s.hash(state),
            DynValue::List(v) | DynValue::Tuple(v) => v.hash(state),
            DynValue::Dict(d) => d.len().hash(state),
        }
    }
}

impl PartialOrd for DynValue {
    fn partial_cmp(&self, other: &Self) -> Option<std::cmp::Ordering> {
        match (self, other) {
            (DynValue::Str(a), DynValue::Str(b)) => a.partial_cmp(b),
            (DynValue::List(a), DynValue::List(b)) | (DynValue::Tuple(a), DynValue::Tuple(b)) => a.partial_cmp(b),
            (DynValue::Float(_), _) | (_, DynValue::Float(_)) => self.as_f64().partial_cmp(&other.as_f64()),
            _ => self.as_i64().partial_cmp(&other.as_i64()),
        }
    }
}

impl std::fmt::Display for DynValue {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        match self {
            DynValue::None => write!(f, "None"),
            DynValue::Int(i) => write!(f, "{}", i),
            DynValue::Float(x) => write!(f, "{:?}", x),
            DynValue::Str(s) => write!(f, "{}", s),
            DynValue::Bool(true) => write!(f, "True"),
            DynValue::Bool(false) => write!(f, "False"),
            DynValue::List(v) => write!(f, "[{}]", v.iter().map(|x| x.to_string()).collect::<Vec<_>>().join(", ")),
            DynValue::Tuple(v) => write!(f, "({})", v.iter().map(|x| x.to_string()).collect::<Vec<_>>().join(", ")),
            DynValue::Dict(d) => write!(f, "{{{}}}", d.iter().map(|(k, v)| format!("{}: {}", k, v)).collect::<Vec<_>>().join(", ")),
        }
    }
}

macro_rules! dyn_arith {
    ($trait:ident, $method:ident, $op:tt) => {
        impl std::ops::$trait for DynValue {
            type Output = DynValue;
            fn $method(self, rhs: DynValue) -> DynValue {
                match (&self, &rhs) {
                    (DynValue::Int(a), DynValue::Int(b)) => DynValue::Int(a $op b),
                    _ => DynValue::Float(self.as_f64() $op rhs.as_f64()),
                }
            }
        }
    };
}

dyn_arith!(Sub, sub, -);
dyn_arith!(Mul, mul, *);
dyn_arith!(Rem, rem, %);

impl std::ops::Add for DynValue {
    type Output = DynValue;
    fn add(self, rhs: DynValue) -> DynValue {
        match (self, rhs) {
            (DynValue::Int(a), DynValue::Int(b)) => DynValue::Int(a + b),
            (DynValue::Str(a), DynValue::Str(b)) => DynValue::Str(a + &b),
            (DynValue::List(mut a), DynValue::List(b)) => {
                a.extend(b);
                DynValue::List(a)
            }
            (a, b) => DynValue::Float(a.as_f64() + b.as_f64()),
        }
    }
}

impl std::ops::Div for DynValue {
    type Output = DynValue;
    fn div(self, rhs: DynValue) -> DynValue {
        DynValue::Float(self.as_f64() / rhs.as_f64())
    }
}

macro_rules! dyn_from_int {
    ($($t:ty),*) => {
        $(impl From<$t> for DynValue {
            fn from(v: $t) -> Self {
                DynValue::Int(v as i64)
            }
        })*
    };
}

dyn_from_int!(i8, i16, i32, i64, isize, u8, u16, u32, u64, usize);

impl From<f64> for DynValue {
    fn from(v: f64) -> Self {
        DynValue::Float(v)
    }
}

impl From<bool> for DynValue {
    fn from(v: bool) -> Self {
        DynValue::Bool(v)
    }
}

impl From<String> for DynValue {
    fn from(v: String) -> Self {
        DynValue::Str(v)
    }
}

impl From<&str> for DynValue {
    fn from(v: &str) -> Self {
        DynValue::Str(v.to_string())
    }
}

impl From<&String> for DynValue {
    fn from(v: &String) -> Self {
        DynValue::Str(v.clone())
    }
}

impl From<()> for DynValue {
    fn from(_: ()) -> Self {
        DynValue::None
    }
}

impl<T: Into<DynValue>> From<Option<T>> for DynValue {
    fn from(v: Option<T>) -> Self {
        v.map_or(DynValue::None, Into::into)
    }
}

impl<T: Into<DynValue>> From<Vec<T>> for DynValue {
    fn from(v: Vec<T>) -> Self {
        DynValue::List(v.into_iter().map(Into::into).collect())
    }
}

impl<K: Into<DynValue>, V: Into<DynValue>> From<std::collections::HashMap<K, V>> for DynValue {
    fn from(m: std::collections::HashMap<K, V>) -> Self {
        DynValue::Dict(m.into_iter().map(|(k, v)| (k.into(), v.into())).collect())
    }
}
`
