package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeResolvePeriods() string {
	return `Resolves a reporting quarter and its comparison period into concrete date ranges.

USE WHEN:
- Working out which dates a quarterly report covers
- Checking what "same quarter last year" or "previous quarter" means for a given quarter
- Listing the calendar months inside a quarter before requesting monthly data

INTERPRETING RESULTS:
- Dates are inclusive and formatted YYYY-MM-DD
- yoy compares with the same quarter one year earlier
- qoq compares with the immediately preceding quarter (Q1 wraps to Q4 of the prior year)
- Q1 ends on March 31, Q2 on June 30, Q3 on September 30, Q4 on December 31

METRICS RETURNED:
- current, previous: start_date, end_date, label and day count
- comparison_type: yoy or qoq
- months: one period per calendar month of the current quarter`
}

func describeCalculateChange() string {
	return `Calculates the period-over-period change between two metric values.

USE WHEN:
- Explaining how much a metric moved between two quarters
- Deciding whether a change is worth reporting to stakeholders
- Checking a single number before building a full report

INTERPRETING RESULTS:
- change_pct is relative to the previous value; a previous value of 0 yields 100% for any increase
- direction is up, down or neutral; neutral means less than 0.5% movement
- is_significant: absolute change at or above the significant threshold (default 10%)
- is_anomaly: absolute change at or above the anomaly threshold (default 25%)
- Set inverse for metrics where lower is better (bounce rate, search position); direction then reflects improvement

METRICS RETURNED:
- current, previous, change_abs, change_pct, formatted_change
- direction, is_significant, is_anomaly`
}

func describeCompareBenchmarks() string {
	return `Compares website metrics against nonprofit sector benchmarks.

USE WHEN:
- Putting a client's numbers in context for a board or funder
- Identifying which metrics are below what similar organizations achieve
- Choosing where to focus improvement work

INTERPRETING RESULTS:
- performance is outperforming, underperforming or at_benchmark
- Results within 5% of the benchmark count as at_benchmark
- Lower-is-better metrics (bounce_rate, avg_search_position) invert the comparison
- Unknown metric names are listed with the available benchmark names

METRICS RETURNED:
- comparisons: current_value, benchmark_value, difference, difference_pct, performance, interpretation
- summary: outperforming, underperforming and at_benchmark lists with counts and total_compared`
}

func describeGenerateInsights() string {
	return `Generates prioritized, plain-language insights from analytics and search snapshots.

USE WHEN:
- Drafting the narrative section of a quarterly report
- Turning raw traffic and search data into recommendations
- Summarizing what went well and what needs attention

INTERPRETING RESULTS:
- priority 1 is most important, 5 least
- type is positive, negative, neutral or opportunity
- category is traffic, engagement, acquisition, content, search or opportunity
- Missing snapshots simply skip the analyses that need them
- executive_summary combines the top traffic finding with the top search finding

METRICS RETURNED:
- executive_summary: two to three sentences for leadership
- key_recommendations: top actionable recommendations
- insights: full list sorted by priority
- insights_by_category: headlines grouped by category`
}

func describeListClients() string {
	return `Lists the client profiles available for reporting.

USE WHEN:
- Finding the correct client name before requesting a report
- Checking which organizations have a search console site configured

INTERPRETING RESULTS:
- name is the identifier used by other tools
- display_name is how the organization appears in reports
- An empty list means no profiles exist in the clients directory

METRICS RETURNED:
- clients: name, display_name, site`
}

func describeAnalyzeReport() string {
	return `Builds a complete quarterly website report for a client from stored snapshots.

USE WHEN:
- Preparing a quarterly review for a nonprofit client
- Answering questions about how a client's website performed in a quarter
- Producing talking points for a board meeting

INTERPRETING RESULTS:
- metadata.missing_sources lists data that was not available; the report is built from what exists
- comparison.traffic_overview and comparison.search_overview hold change metrics per metric name
- Significant changes (10%+) are worth mentioning; anomalies (25%+) deserve explanation
- benchmarks compare the current quarter with nonprofit sector norms
- Set full to include raw snapshots, top pages and keywords

METRICS RETURNED:
- metadata: client, quarter, periods, sources and missing sources
- comparison: traffic, search and monthly session changes
- benchmarks: comparisons and summary
- insights: executive summary, key recommendations, insights, insights_by_category`
}
