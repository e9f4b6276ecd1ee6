package skills

// defaultGroups 内置同义词分组。
// node/node.js/nodejs 归入独立的 "node"，不再折叠到 javascript。
var defaultGroups = []SynonymGroup{
	// 编程语言
	{"python", []string{"python", "py", "python3", "python programming"}},
	{"java", []string{"java", "java programming", "jdk", "j2ee"}},
	{"javascript", []string{"javascript", "js", "ecmascript"}},
	{"typescript", []string{"typescript", "ts"}},
	{"c++", []string{"c++", "cpp", "c plus plus"}},
	{"c#", []string{"c#", "c sharp", ".net c#"}},
	{"php", []string{"php", "php7", "laravel php"}},
	{"r", []string{"r", "r programming", "r-lang"}},
	{"kotlin", []string{"kotlin", "android kotlin"}},
	{"swift", []string{"swift", "ios swift"}},
	{"go", []string{"go", "golang"}},

	// 数据科学与机器学习
	{"machine learning", []string{"machine learning", "ml", "ai", "ml modeling", "predictive modeling"}},
	{"deep learning", []string{"deep learning", "dl", "neural networks", "cnn", "rnn", "transformers"}},
	{"nlp", []string{"nlp", "natural language processing", "text mining", "spacy", "nltk"}},
	{"data analysis", []string{"data analysis", "data analytics", "analytics", "business analysis"}},
	{"data visualization", []string{"data visualization", "visualization", "charts", "dashboards"}},
	{"pandas", []string{"pandas", "data manipulation", "dataframe"}},
	{"numpy", []string{"numpy", "numerical computing", "linear algebra"}},
	{"scikit-learn", []string{"scikit-learn", "sklearn", "scikit learn"}},
	{"tensorflow", []string{"tensorflow", "tf", "tf2"}},
	{"keras", []string{"keras", "tf-keras"}},
	{"pytorch", []string{"pytorch", "torch"}},
	{"tableau", []string{"tableau", "tableau desktop", "tableau prep"}},
	{"power bi", []string{"powerbi", "power bi", "ms powerbi"}},
	{"eda", []string{"eda", "exploratory data analysis"}},

	// 数据库
	{"sql", []string{"sql", "mysql", "postgresql", "postgres", "mssql", "oracle sql", "sqlite", "pl/sql"}},
	{"nosql", []string{"nosql", "mongodb", "cassandra", "dynamodb", "couchdb"}},
	{"database", []string{"database", "dbms", "db admin", "oracle", "rdbms"}},

	// 云与运维
	{"aws", []string{"aws", "amazon web services", "ec2", "s3", "lambda", "cloudwatch"}},
	{"azure", []string{"azure", "microsoft azure", "azure cloud"}},
	{"gcp", []string{"gcp", "google cloud", "google cloud platform"}},
	{"docker", []string{"docker", "docker containers"}},
	{"kubernetes", []string{"kubernetes", "k8s", "kube"}},
	{"jenkins", []string{"jenkins", "ci/cd", "continuous integration"}},
	{"terraform", []string{"terraform", "iac", "infrastructure as code"}},
	{"linux", []string{"linux", "ubuntu", "redhat", "debian", "centos"}},
	{"git", []string{"git", "github", "gitlab", "bitbucket", "version control"}},

	// Web 开发
	{"html", []string{"html", "html5"}},
	{"css", []string{"css", "css3", "tailwind", "bootstrap"}},
	{"react", []string{"react", "react.js", "reactjs"}},
	{"angular", []string{"angular", "angularjs"}},
	{"vue", []string{"vue", "vue.js", "vuejs"}},
	{"node", []string{"node", "nodejs", "node.js"}},
	{"express", []string{"express", "expressjs"}},
	{"django", []string{"django", "django rest", "drf"}},
	{"flask", []string{"flask", "flask api"}},
	{"spring", []string{"spring", "spring boot", "spring framework"}},

	// 移动开发
	{"android", []string{"android", "android studio"}},
	{"ios", []string{"ios", "apple ios", "swift ios"}},
	{"flutter", []string{"flutter", "dart", "flutter sdk"}},
	{"react native", []string{"react native", "rn mobile"}},

	// 网络安全
	{"cybersecurity", []string{"cybersecurity", "cyber security", "information security", "infosec"}},
	{"network security", []string{"network security", "firewalls", "ids/ips"}},
	{"ethical hacking", []string{"ethical hacking", "penetration testing", "pentesting", "bug bounty"}},
	{"cryptography", []string{"cryptography", "crypto algorithms", "ssl/tls"}},
	{"siem", []string{"siem", "splunk", "security monitoring"}},

	// UI/UX
	{"ui design", []string{"ui design", "user interface", "interface design"}},
	{"ux design", []string{"ux design", "user experience", "interaction design"}},
	{"figma", []string{"figma", "figma design"}},
	{"adobe xd", []string{"adobe xd", "xd"}},
	{"photoshop", []string{"photoshop", "adobe photoshop"}},
	{"illustrator", []string{"illustrator", "adobe illustrator"}},
	{"wireframing", []string{"wireframing", "mockups", "prototyping"}},

	// 软技能
	{"communication", []string{"communication", "comm skills", "presentation skills"}},
	{"problem solving", []string{"problem solving", "troubleshooting", "analytical thinking"}},
	{"teamwork", []string{"teamwork", "collaboration", "working in teams"}},
	{"leadership", []string{"leadership", "team lead", "management"}},
	{"critical thinking", []string{"critical thinking", "logical thinking", "reasoning"}},
}

// DefaultGroups 返回内置分组的副本
func DefaultGroups() []SynonymGroup {
	out := make([]SynonymGroup, len(defaultGroups))
	for i, g := range defaultGroups {
		out[i] = SynonymGroup{Canonical: g.Canonical, Synonyms: append([]string{}, g.Synonyms...)}
	}
	return out
}
